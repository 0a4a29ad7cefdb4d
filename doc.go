// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

// Package xcfg provides a live configuration provider for an application.
// Configuration is loaded from one of several interchangeable backends
// (local files, a git repository, a relational table, etcd), partitioned by
// an environment ("project/profile") and kept fresh by a reload strategy.
// Application code reads it through a [Provider], whatever the backend is.
//
// A provider is usually built from a bootstrap key-value store:
//
//	raw, err := xcfg.NewRawConfigStore(xcfg.PropertiesFileLoader("bootstrap.properties"))
//	if err != nil {
//		panic(err)
//	}
//	provider, err := xcfg.NewProviderFactory().Create(context.Background(), raw)
//	if err != nil {
//		panic(err)
//	}
//	defer provider.Close()
//	dbURL, err := xcfg.GetProperty[string](provider, "databasePool.url")
package xcfg
