// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/cast"
)

// Source is the contract a configuration backend implements.
//
// Initialize must complete successfully before Fetch or Reload can be called
// (they return [ErrNotInitialized] otherwise).
// Reload re-fetches the underlying data and replaces the source's cache atomically;
// it is safe to call concurrently with Fetch, which sees either the old or the new data.
type Source interface {
	// Initialize prepares connection / clone state.
	// It returns a [BackendUnavailableError] if the backend cannot be reached.
	Initialize(ctx context.Context) error
	// Reload re-fetches all underlying data.
	Reload(ctx context.Context) error
	// Fetch returns a copy of the configuration of an environment.
	// An environment without entries yields an empty map; an environment the
	// source cannot resolve yields [ErrUnknownEnvironment].
	Fetch(env Environment) (map[string]string, error)
}

// partitionCache holds the resolved snapshots of a source, by partition.
// The whole map is replaced on each write, readers never lock.
type partitionCache struct {
	partitions atomic.Pointer[map[string]map[string]string]
	mu         sync.Mutex // serializes writers
}

// get returns the (shared, read-only) snapshot of a partition.
func (cache *partitionCache) get(partition string) (map[string]string, bool) {
	partitions := cache.partitions.Load()
	if partitions == nil {
		return nil, false
	}
	snapshot, found := (*partitions)[partition]

	return snapshot, found
}

// put stores one partition's snapshot.
func (cache *partitionCache) put(partition string, snapshot map[string]string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	var newPartitions map[string]map[string]string
	if old := cache.partitions.Load(); old != nil {
		newPartitions = make(map[string]map[string]string, len(*old)+1)
		for key, value := range *old {
			newPartitions[key] = value
		}
	} else {
		newPartitions = make(map[string]map[string]string, 1)
	}
	newPartitions[partition] = snapshot
	cache.partitions.Store(&newPartitions)
}

// replace swaps all the partitions.
func (cache *partitionCache) replace(partitions map[string]map[string]string) {
	cache.mu.Lock()
	cache.partitions.Store(&partitions)
	cache.mu.Unlock()
}

// keys returns the sorted list of stored partitions.
func (cache *partitionCache) keys() []string {
	partitions := cache.partitions.Load()
	if partitions == nil {
		return nil
	}
	keys := make([]string, 0, len(*partitions))
	for key := range *partitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// toSnapshot converts a flat raw configuration map to string values.
// Lists are joined with ",", nil becomes "".
func toSnapshot(configMap map[string]any) (map[string]string, error) {
	snapshot := make(map[string]string, len(configMap))
	for key, value := range configMap {
		strValue, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		snapshot[key] = strValue
	}

	return snapshot, nil
}

func stringify(value any) (string, error) {
	switch val := value.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []any, []string, []int:
		items := toAnySlice(val)
		strItems := make([]string, len(items))
		for idx, item := range items {
			strItem, err := stringify(item)
			if err != nil {
				return "", err
			}
			strItems[idx] = strItem
		}

		return strings.Join(strItems, ","), nil
	}

	return cast.ToStringE(value)
}

func toAnySlice(value any) []any {
	switch val := value.(type) {
	case []any:
		return val
	case []string:
		items := make([]any, len(val))
		for idx, item := range val {
			items[idx] = item
		}

		return items
	case []int:
		items := make([]any, len(val))
		for idx, item := range val {
			items[idx] = item
		}

		return items
	}

	return nil
}

// snapshotLoader returns a loader that merges given files in order (later wins),
// flattening nested structures.
// Missing files are treated as empty, values that cannot be served as strings
// result in a [MalformedFileError].
func snapshotLoader(filePaths []string, cached bool) Loader {
	loaders := make([]Loader, 0, len(filePaths))
	for _, filePath := range filePaths {
		var ldr Loader = FileLoader(filePath)
		if cached {
			ldr = NewFileCacheLoader(ldr, filePath)
		}
		ldr = stringValuesLoader(filePath, NewFlattenLoader(ldr))
		loaders = append(loaders, IgnoreErrorLoader(ldr, os.ErrNotExist))
	}

	return NewMultiLoader(true, loaders...)
}

// stringValuesLoader checks every (flat) value of a document converts to a string.
func stringValuesLoader(document string, loader Loader) Loader {
	return LoaderFunc(func() (map[string]any, error) {
		configMap, err := loader.Load()
		if err != nil {
			return nil, err
		}
		if _, err := toSnapshot(configMap); err != nil {
			return nil, NewMalformedFileError(document, err)
		}

		return configMap, nil
	})
}

// loadSnapshot runs a loader and converts its result into a snapshot.
func loadSnapshot(loader Loader) (map[string]string, error) {
	configMap, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return toSnapshot(configMap)
}
