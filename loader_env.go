// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"os"
	"strings"
)

// EnvLoader loads bootstrap configuration from OS's ENV.
// Only variables starting with prefix are taken into account; the prefix is
// stripped, the rest is lower-cased and "_" becomes ".".
// Example: with prefix "XCFG_", XCFG_DB_URL=... produces the key "db.url".
// An empty prefix keeps all variables, with the same key transformation.
func EnvLoader(prefix string) Loader {
	return LoaderFunc(func() (map[string]any, error) {
		envs := os.Environ()

		configMap := make(map[string]any)
		for _, env := range envs {
			name, value, found := strings.Cut(env, "=")
			if !found || !strings.HasPrefix(name, prefix) {
				continue
			}
			key := strings.TrimPrefix(name, prefix)
			if key == "" {
				continue
			}
			key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
			configMap[key] = value
		}

		return configMap, nil
	})
}
