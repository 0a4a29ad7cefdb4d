// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"errors"
)

// IgnoreErrorLoader decorates another loader to ignore the error returned by it,
// if error is present in the list of errors passed as second parameter.
// An empty configuration map is returned in that case.
// FileSource uses it with [os.ErrNotExist], so a partition without files is empty
// instead of failing.
func IgnoreErrorLoader(loader Loader, errs ...error) Loader {
	return LoaderFunc(func() (map[string]any, error) {
		configMap, err := loader.Load()
		if err != nil {
			for _, ignoreErr := range errs {
				if errors.Is(err, ignoreErr) {
					return map[string]any{}, nil
				}
			}
		}

		return configMap, err
	})
}
