// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

// PlainLoader is an explicit go configuration map retriever.
// It simply returns a copy of the given config map parameter.
//
// It can be used, for example, as the first loader of a [MultiLoader]
// (with keys overwrite allowed) to provide bootstrap defaults, or in tests.
func PlainLoader(configMap map[string]any) Loader {
	// preserve state at current time, later changes of configMap are not seen.
	configMapCopy := cloneConfigMap(configMap)

	return LoaderFunc(func() (map[string]any, error) {
		return cloneConfigMap(configMapCopy), nil
	})
}
