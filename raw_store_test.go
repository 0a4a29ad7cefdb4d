// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/actforgood/xcfg"
)

func TestRawConfigStore(t *testing.T) {
	t.Parallel()

	t.Run("success - loaded from composed loaders", testRawConfigStoreFromLoaders)
	t.Run("success - nested structures are flattened", testRawConfigStoreFlattensNestedConfig)
	t.Run("success - blank values are missing", testRawConfigStoreBlankValues)
	t.Run("success - secrets are masked", testRawConfigStoreMasksSecrets)
	t.Run("error - loader", testRawConfigStoreReturnsLoaderErr)
}

func testRawConfigStoreFromLoaders(t *testing.T) {
	t.Parallel()

	// arrange
	loader := xcfg.NewMultiLoader(
		true,
		xcfg.PropertiesFileLoader("testdata/bootstrap.properties"),
		xcfg.PlainLoader(map[string]any{"profile": "prod"}),
	)

	// act
	subject, err := xcfg.NewRawConfigStore(loader)

	// assert
	requireNil(t, err)
	profile, found := subject.Get(xcfg.KeyProfile)
	assertTrue(t, found)
	assertEqual(t, "prod", profile)
	assertEqual(t, "file", subject.GetOrDefault(xcfg.KeyType, "git"))
	assertEqual(t, xcfg.DefaultDBTable, subject.GetOrDefault(xcfg.KeyDBTable, xcfg.DefaultDBTable))
	assertEqual(
		t,
		[]string{"file.root", "files", "profile", "project", "reload.interval", "type"},
		subject.Keys(),
	)
}

func testRawConfigStoreFlattensNestedConfig(t *testing.T) {
	t.Parallel()

	// arrange
	loader := xcfg.PlainLoader(map[string]any{
		"type": "database",
		"db": map[string]any{
			"url":   "file::memory:",
			"hosts": []string{"a", "b"},
		},
		"reload": map[string]any{
			"interval": 30,
		},
	})

	// act
	subject, err := xcfg.NewRawConfigStore(loader)

	// assert
	requireNil(t, err)
	assertEqual(t, "file::memory:", subject.GetOrDefault(xcfg.KeyDBURL, ""))
	assertEqual(t, "a,b", subject.GetOrDefault("db.hosts", ""))
	assertEqual(t, "30", subject.GetOrDefault(xcfg.KeyReloadInterval, ""))
}

func testRawConfigStoreBlankValues(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.NewRawConfigStoreFromMap(map[string]string{
		"db.url":  "   ",
		"project": " shop ",
	})

	// act
	_, foundURL := subject.Get(xcfg.KeyDBURL)
	project, foundProject := subject.Get(xcfg.KeyProject)

	// assert
	assertFalse(t, foundURL)
	assertTrue(t, foundProject)
	assertEqual(t, "shop", project)
	assertEqual(t, "default-url", subject.GetOrDefault(xcfg.KeyDBURL, "default-url"))
}

func testRawConfigStoreMasksSecrets(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.NewRawConfigStoreFromMap(map[string]string{
		"db.password": "s3cr3t",
		"api.secret":  "0xBEEF",
		"db.user":     "shop",
	})

	// act
	result := subject.String()

	// assert
	assertEqual(t, "{api.secret=******, db.password=******, db.user=shop}", result)
}

func testRawConfigStoreReturnsLoaderErr(t *testing.T) {
	t.Parallel()

	// arrange
	expectedErr := errors.New("intentionally triggered loader error")
	loader := xcfg.LoaderFunc(func() (map[string]any, error) {
		return nil, expectedErr
	})

	// act
	_, err := xcfg.NewRawConfigStore(loader)

	// assert
	assertTrue(t, errors.Is(err, expectedErr))
}

func ExampleNewRawConfigStore() {
	raw, err := xcfg.NewRawConfigStore(xcfg.NewMultiLoader(
		true, // later loaders overwrite earlier ones' keys.
		xcfg.PropertiesFileLoader("testdata/bootstrap.properties"),
		xcfg.EnvLoader("XCFG_EXAMPLE_"),
	))
	if err != nil {
		panic(err)
	}
	fmt.Println(raw.GetOrDefault(xcfg.KeyType, ""))
	fmt.Println(raw.GetOrDefault(xcfg.KeyDBTable, xcfg.DefaultDBTable))

	// Output:
	// file
	// TB_CONFIG
}
