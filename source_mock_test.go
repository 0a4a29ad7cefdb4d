// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/actforgood/xcfg"
)

func TestMockSource(t *testing.T) {
	t.Parallel()

	// arrange
	var (
		_           xcfg.Source = (*xcfg.MockSource)(nil) // test it implements its contract
		_           io.Closer   = (*xcfg.MockSource)(nil)
		subject                 = xcfg.NewMockSource()
		env                     = xcfg.NewEnvironment("shop", "dev")
		expectedErr             = errors.New("intentionally triggered error")
	)
	reloadCbCalls, fetchCbCalls := 0, 0
	subject.SetKeyValues(env, "foo", "bar", "year", "2022", "odd")
	subject.SetKeyValues(env, "year", "2023")
	subject.SetReloadCallback(func(context.Context) { reloadCbCalls++ })
	subject.SetFetchCallback(func(xcfg.Environment) { fetchCbCalls++ })

	// act & assert
	assertNil(t, subject.Initialize(context.Background()))
	assertNil(t, subject.Reload(context.Background()))
	result, err := subject.Fetch(env)
	assertNil(t, err)
	assertEqual(t, map[string]string{"foo": "bar", "year": "2023"}, result)
	result["foo"] = "changed"
	result, _ = subject.Fetch(env)
	assertEqual(t, "bar", result["foo"])
	result, _ = subject.Fetch(xcfg.NewEnvironment("shop", "prod"))
	assertEqual(t, map[string]string{}, result)

	subject.SetInitializeErr(expectedErr)
	subject.SetReloadErr(expectedErr)
	subject.SetFetchErr(expectedErr)
	assertTrue(t, errors.Is(subject.Initialize(context.Background()), expectedErr))
	assertTrue(t, errors.Is(subject.Reload(context.Background()), expectedErr))
	result, err = subject.Fetch(env)
	assertNil(t, result)
	assertTrue(t, errors.Is(err, expectedErr))
	assertNil(t, subject.Close())

	assertEqual(t, 2, subject.InitializeCallsCount())
	assertEqual(t, 2, subject.ReloadCallsCount())
	assertEqual(t, 4, subject.FetchCallsCount())
	assertEqual(t, 1, subject.CloseCallsCount())
	assertEqual(t, 2, reloadCbCalls)
	assertEqual(t, 4, fetchCbCalls)
}
