// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"io"
)

// ReloadHook gets called with an environment's configuration after each
// successful reload of a [NotifyingSource]. The map is owned by the hook.
type ReloadHook func(export map[string]string)

// NotifyingSource decorates a Source, calling hooks after each successful Reload.
type NotifyingSource struct {
	Source
	env   Environment
	hooks []ReloadHook
}

// NewNotifyingSource instantiates a new NotifyingSource which, after a
// successful reload of src, fetches env's configuration and passes it to hooks.
func NewNotifyingSource(src Source, env Environment, hooks ...ReloadHook) NotifyingSource {
	return NotifyingSource{
		Source: src,
		env:    env,
		hooks:  hooks,
	}
}

// Reload reloads the decorated source, and, on success, notifies the hooks
// synchronously, in registration order, before returning.
// A failed reload notifies nobody.
func (src NotifyingSource) Reload(ctx context.Context) error {
	if err := src.Source.Reload(ctx); err != nil {
		return err
	}
	if len(src.hooks) == 0 {
		return nil
	}

	export, err := src.Source.Fetch(src.env)
	if err != nil {
		return err
	}
	for _, hook := range src.hooks {
		hook(cloneSnapshot(export))
	}

	return nil
}

// Close closes the decorated source, if it is closable.
func (src NotifyingSource) Close() error {
	if closer, ok := src.Source.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
