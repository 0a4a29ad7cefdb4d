// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg_test

import (
	"errors"
	"testing"

	"github.com/actforgood/xcfg"
)

func TestFlattenLoader(t *testing.T) {
	t.Parallel()

	t.Run("success - nested maps are flattened", testFlattenLoaderSuccess)
	t.Run("success - lists of nested structures get indexed keys", testFlattenLoaderNestedLists)
	t.Run("success - custom separator", testFlattenLoaderWithSeparator)
	t.Run("error - original loader", testFlattenLoaderReturnsErrFromDecoratedLoader)
}

func testFlattenLoaderSuccess(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.NewFlattenLoader(xcfg.PlainLoader(map[string]any{
		"databasePool": map[string]any{
			"url":  dbURL,
			"size": 10,
			"timeouts": map[any]any{
				"read": "3s",
			},
		},
		"tags": []any{"a", "b"},
		"foo":  "bar",
	}))

	// act
	config, err := subject.Load()

	// assert
	assertNil(t, err)
	assertEqual(
		t,
		map[string]any{
			"databasePool.url":           dbURL,
			"databasePool.size":          10,
			"databasePool.timeouts.read": "3s",
			"tags":                       []any{"a", "b"},
			"foo":                        "bar",
		},
		config,
	)
}

func testFlattenLoaderNestedLists(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.NewFlattenLoader(xcfg.PlainLoader(map[string]any{
		"servers": []any{
			map[string]any{"host": "a", "port": 1},
			map[any]any{"host": "b", "ports": []any{2, 3}},
		},
		"matrix": []any{[]any{1, 2}, []any{3}},
		"tags":   []any{"a", "b"},
	}))

	// act
	config, err := subject.Load()

	// assert
	assertNil(t, err)
	assertEqual(
		t,
		map[string]any{
			"servers.0.host":  "a",
			"servers.0.port":  1,
			"servers.1.host":  "b",
			"servers.1.ports": []any{2, 3},
			"matrix.0":        []any{1, 2},
			"matrix.1":        []any{3},
			"tags":            []any{"a", "b"},
		},
		config,
	)
}

func testFlattenLoaderWithSeparator(t *testing.T) {
	t.Parallel()

	// arrange
	subject := xcfg.NewFlattenLoader(
		xcfg.FileLoader("testdata/config.json"),
		xcfg.FlattenLoaderWithSeparator("_"),
	)

	// act
	config, err := subject.Load()

	// assert
	assertNil(t, err)
	assertEqual(
		t,
		map[string]any{
			"databasePool_url":  dbURL,
			"databasePool_size": float64(10),
			"feature_enabled":   true,
			"app_name":          "shop",
			"app_tags":          []any{"a", "b"},
		},
		config,
	)
}

func testFlattenLoaderReturnsErrFromDecoratedLoader(t *testing.T) {
	t.Parallel()

	// arrange
	var (
		expectedErr = errors.New("intentionally triggered decorated loader error")
		loader      = xcfg.LoaderFunc(func() (map[string]any, error) {
			return nil, expectedErr
		})
		subject = xcfg.NewFlattenLoader(loader)
	)

	// act
	config, err := subject.Load()

	// assert
	assertTrue(t, errors.Is(err, expectedErr))
	assertNil(t, config)
}
