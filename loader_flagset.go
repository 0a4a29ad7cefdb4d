// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"flag"
	"sync"
)

// FlagSetLoader reduces command line flags to a bootstrap configuration map
// (the equivalent of "system properties").
// Flag names are used as keys, so define them like "type", "db.url", etc.
// The second, optional, parameter indicates if all flags (even those not explicitly set)
// should be taken into consideration; by default, only explicitly set flags are.
func FlagSetLoader(flgSet *flag.FlagSet, visitAll ...bool) Loader {
	all := len(visitAll) > 0 && visitAll[0]
	var (
		configMap = make(map[string]any)
		once      sync.Once
	)

	return LoaderFunc(func() (map[string]any, error) {
		if flgSet.Parsed() {
			once.Do(func() {
				store := func(f *flag.Flag) {
					configMap[f.Name] = f.Value.String()
				}
				if all {
					flgSet.VisitAll(store)
				} else {
					flgSet.Visit(store)
				}
			})
		}

		return cloneConfigMap(configMap), nil
	})
}
