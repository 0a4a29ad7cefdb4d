// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

// Loader is responsible for loading a raw configuration
// key value map (from a file, ENV, flags, ...).
// Loaders are the building blocks of the bootstrap [RawConfigStore]
// and of the file based sources.
type Loader interface {
	// Load returns a configuration key value map or an error.
	//
	// The returned map must be safe for a later mutation by the caller
	// (decorators alter it in place), so stateful loaders return copies
	// (see cloneConfigMap).
	Load() (map[string]any, error)
}

// The LoaderFunc type is an adapter to allow the use of
// ordinary functions as Loaders. If fn is a function
// with the appropriate signature, LoaderFunc(fn) is a
// Loader that calls fn.
type LoaderFunc func() (map[string]any, error)

// Load calls fn().
func (fn LoaderFunc) Load() (map[string]any, error) {
	return fn()
}
