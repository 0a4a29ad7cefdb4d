// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/actforgood/xerr"
)

// KeyConflictError is an error returned by MultiLoader
// in case of a duplicate key.
// If key overwrite is allowed, this error will not be returned.
type KeyConflictError struct {
	key string // the duplicate key
}

// NewKeyConflictError instantiates a new KeyConflictError.
// The duplicate key must be provided.
func NewKeyConflictError(key string) KeyConflictError {
	return KeyConflictError{key: key}
}

// Error returns string representation of the KeyConflictError.
func (e KeyConflictError) Error() string {
	return fmt.Sprintf(`key "%s" already exists`, e.key)
}

// MultiLoader is a composite loader that merges configuration
// from multiple loaders, in the order they were given.
// FileSource relies on it to apply "later file wins" semantics.
type MultiLoader struct {
	loaders           []Loader
	allowKeyOverwrite bool
}

// NewMultiLoader instantiates a new MultiLoader object.
// If allowKeyOverwrite is true, a later provided loader overwrites an earlier
// one's key; otherwise a duplicate key produces a KeyConflictError.
func NewMultiLoader(allowKeyOverwrite bool, loaders ...Loader) MultiLoader {
	return MultiLoader{
		loaders:           loaders,
		allowKeyOverwrite: allowKeyOverwrite,
	}
}

// Load returns the merged configuration of all encapsulated loaders.
// Loaders are called concurrently, results are merged in order.
// All loaders' errors are aggregated in a xerr.MultiError.
func (loader MultiLoader) Load() (map[string]any, error) {
	var (
		wg        sync.WaitGroup
		results   = make([]loadResult, len(loader.loaders))
		configMap map[string]any
		unqKeys   = make(map[string]struct{})
		mErr      *xerr.MultiError
		startIdx  int
	)

	for idx, ldr := range loader.loaders {
		wg.Add(1)
		go func(ldr Loader, idx int) {
			defer wg.Done()
			cfgMap, err := ldr.Load()
			results[idx] = loadResult{configMap: cfgMap, err: err} // each goroutine owns its slot.
		}(ldr, idx)
	}
	wg.Wait()

	// with overwrite allowed, merge directly into the first (disposable) map.
	if loader.allowKeyOverwrite && len(results) > 0 &&
		results[0].err == nil && results[0].configMap != nil {
		configMap = results[0].configMap
		startIdx = 1
	} else {
		configMap = make(map[string]any)
	}

	for idx := startIdx; idx < len(results); idx++ {
		result := results[idx]
		if result.err != nil {
			mErr = mErr.Add(result.err)

			continue
		}
		for key, value := range result.configMap {
			if !loader.allowKeyOverwrite {
				unqKey := strings.ToLower(key)
				if _, found := unqKeys[unqKey]; found {
					mErr = mErr.Add(NewKeyConflictError(key))

					continue
				}
				unqKeys[unqKey] = struct{}{}
			}

			configMap[key] = value
		}
	}

	if err := mErr.ErrOrNil(); err != nil {
		return nil, err
	}

	return configMap, nil
}

// loadResult encapsulates the result from a Loader.
type loadResult struct {
	configMap map[string]any
	err       error
}
