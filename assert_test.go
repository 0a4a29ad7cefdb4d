// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg_test

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// assertEqual checks if 2 values are equal.
// Returns successful assertion status.
func assertEqual(t *testing.T, expected, actual any) bool {
	t.Helper()

	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("values are not equal (-expected +actual):\n%s", diff)

		return false
	}

	return true
}

// assertNotEqual checks if 2 values are not equal.
// Returns successful assertion status.
func assertNotEqual(t *testing.T, notExpected, actual any) bool {
	t.Helper()

	if cmp.Equal(notExpected, actual) {
		t.Errorf("value should not be %+v", actual)

		return false
	}

	return true
}

// assertNil checks if value passed is nil.
// Returns successful assertion status.
func assertNil(t *testing.T, actual any) bool {
	t.Helper()

	if !isNil(actual) {
		t.Errorf("expected nil, but got %+v", actual)

		return false
	}

	return true
}

// requireNil fails the test immediately if passed value is not nil.
func requireNil(t *testing.T, actual any) {
	t.Helper()

	if !isNil(actual) {
		t.Fatalf("expected nil, but got %+v", actual)
	}
}

// assertNotNil checks if value passed is not nil.
// Returns successful assertion status.
func assertNotNil(t *testing.T, actual any) bool {
	t.Helper()

	if isNil(actual) {
		t.Error("expected not nil value")

		return false
	}

	return true
}

// assertTrue checks if value passed is true.
// Returns successful assertion status.
func assertTrue(t *testing.T, actual bool) bool {
	t.Helper()

	if !actual {
		t.Error("should be true")

		return false
	}

	return true
}

// assertFalse checks if value passed is false.
// Returns successful assertion status.
func assertFalse(t *testing.T, actual bool) bool {
	t.Helper()

	if actual {
		t.Error("should be false")

		return false
	}

	return true
}

// isNil checks an interface if it is nil.
func isNil(object any) bool {
	if object == nil {
		return true
	}

	value := reflect.ValueOf(object)
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface,
		reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return value.IsNil()
	}

	return false
}
