// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"strconv"

	"github.com/spf13/cast"
)

// FlattenLoader decorates another loader to replace nested configuration
// with flat keys pointing to its leaves.
//
// Example, given the configuration:
//
//	{
//	  "databasePool": {
//	    "url": "jdbc:mysql://127.0.0.1:3306/app",
//	    "size": 10
//	  }
//	}
//
// the result is: "databasePool.url", "databasePool.size".
// Lists of scalars are kept as they are, while lists holding nested structures
// get indexed keys: {"servers": [{"host": "a"}]} becomes "servers.0.host".
// Snapshots served by sources are flat, so every structured format goes through it.
type FlattenLoader struct {
	loader    Loader
	separator string
}

// NewFlattenLoader instantiates a new FlattenLoader object.
func NewFlattenLoader(loader Loader, opts ...FlattenLoaderOption) FlattenLoader {
	flattenLoader := FlattenLoader{
		loader:    loader,
		separator: ".",
	}

	// apply options, if any.
	for _, opt := range opts {
		opt(&flattenLoader)
	}

	return flattenLoader
}

// Load returns a flat configuration key-value map from the original loader.
func (decorator FlattenLoader) Load() (map[string]any, error) {
	configMap, err := decorator.loader.Load()
	if err != nil {
		return configMap, err
	}

	flatConfigMap := make(map[string]any, len(configMap))
	decorator.flatten("", configMap, flatConfigMap)

	return flatConfigMap, nil
}

func (decorator FlattenLoader) flatten(prefix string, curr, dst map[string]any) {
	for key, value := range curr {
		flatKey := key
		if prefix != "" {
			flatKey = prefix + decorator.separator + key
		}
		decorator.flattenValue(flatKey, value, dst)
	}
}

func (decorator FlattenLoader) flattenValue(flatKey string, value any, dst map[string]any) {
	switch val := value.(type) {
	case map[string]any:
		decorator.flatten(flatKey, val, dst)
	case map[any]any:
		decorator.flatten(flatKey, cast.ToStringMap(val), dst)
	case []any:
		if !hasNestedItems(val) {
			dst[flatKey] = value

			return
		}
		for idx, item := range val {
			decorator.flattenValue(flatKey+decorator.separator+strconv.Itoa(idx), item, dst)
		}
	case []map[string]any:
		for idx, item := range val {
			decorator.flatten(flatKey+decorator.separator+strconv.Itoa(idx), item, dst)
		}
	default:
		dst[flatKey] = value
	}
}

// hasNestedItems tells whether a list holds maps or lists.
func hasNestedItems(list []any) bool {
	for _, item := range list {
		switch item.(type) {
		case map[string]any, map[any]any, []any, []map[string]any:
			return true
		}
	}

	return false
}

// FlattenLoaderOption defines optional function for configuring
// a Flatten Loader.
type FlattenLoaderOption func(*FlattenLoader)

// FlattenLoaderWithSeparator sets the separator for the flat keys.
// By default, is set to "."(dot).
func FlattenLoaderWithSeparator(keySeparator string) FlattenLoaderOption {
	return func(loader *FlattenLoader) {
		loader.separator = keySeparator
	}
}
