// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"os"
	"sync"
	"time"
)

// FileCacheLoader decorates a file loader to parse the file only if it was
// modified since the previous load. FileSource wraps every file with it, so a
// periodic reload of unchanged files costs a stat call.
type FileCacheLoader struct {
	loader   Loader
	filePath string
	cache    *fileCache
}

// NewFileCacheLoader instantiates a new FileCacheLoader.
// filePath should be the same file as the decorated loader's one.
func NewFileCacheLoader(loader Loader, filePath string) FileCacheLoader {
	return FileCacheLoader{
		loader:   loader,
		filePath: filePath,
		cache:    new(fileCache),
	}
}

// Load returns decorated loader's configuration map, from cache
// if the file's modification time did not change.
func (decorator FileCacheLoader) Load() (map[string]any, error) {
	fInfo, err := os.Stat(decorator.filePath)
	if err != nil {
		return nil, err
	}
	modTime := fInfo.ModTime()

	if configMap, hit := decorator.cache.load(modTime); hit {
		return configMap, nil
	}

	configMap, err := decorator.loader.Load()
	if err != nil {
		return configMap, err
	}
	decorator.cache.save(configMap, modTime)

	return configMap, nil
}

// fileCache holds the last parsed content of a file.
type fileCache struct {
	configMap map[string]any
	modTime   time.Time
	loaded    bool
	mu        sync.RWMutex
}

func (cache *fileCache) save(configMap map[string]any, modTime time.Time) {
	cache.mu.Lock()
	cache.configMap = cloneConfigMap(configMap)
	cache.modTime = modTime
	cache.loaded = true
	cache.mu.Unlock()
}

// load returns a copy of the cached map if the file was not modified meanwhile.
func (cache *fileCache) load(modTime time.Time) (map[string]any, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	if cache.loaded && modTime.Equal(cache.modTime) {
		return cloneConfigMap(cache.configMap), true
	}

	return nil, false
}
