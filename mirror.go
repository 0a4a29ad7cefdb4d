// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import "sync/atomic"

// PropertyMirror holds a read-only copy of a provider's configuration for a
// consumer which cannot get a hold of the provider itself.
// It is kept up to date by being registered as a [ReloadHook], see [FactoryWithMirror].
type PropertyMirror struct {
	props atomic.Pointer[map[string]string]
}

// NewPropertyMirror instantiates a new, empty, PropertyMirror.
func NewPropertyMirror() *PropertyMirror {
	return &PropertyMirror{}
}

// Update replaces the mirrored configuration. It has the [ReloadHook] signature.
func (mirror *PropertyMirror) Update(export map[string]string) {
	props := cloneSnapshot(export)
	mirror.props.Store(&props)
}

// Property returns the raw value of a key, or a [PropertyNotFoundError].
func (mirror *PropertyMirror) Property(key string) (string, error) {
	value, found := mirror.load()[key]
	if !found {
		return "", NewPropertyNotFoundError(key)
	}

	return value, nil
}

// Get returns a configuration value for a given key, see [Config].
func (mirror *PropertyMirror) Get(key string, def ...any) any {
	value, found := mirror.load()[key]
	if len(def) > 0 {
		if !found {
			return def[0]
		}
		if def[0] != nil {
			return castValueByDefault(value, def[0])
		}
	}
	if !found {
		return nil
	}

	return value
}

// AllConfigurationAsMap returns a copy of the mirrored configuration.
func (mirror *PropertyMirror) AllConfigurationAsMap() map[string]string {
	return cloneSnapshot(mirror.load())
}

func (mirror *PropertyMirror) load() map[string]string {
	if props := mirror.props.Load(); props != nil {
		return *props
	}

	return nil
}
