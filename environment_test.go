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

func TestNewEnvironment(t *testing.T) {
	t.Parallel()

	tests := [...]struct {
		name            string
		project         string
		profile         string
		expectedProfile string
		expectedString  string
	}{
		{
			name:            "with profile",
			project:         "shop",
			profile:         "dev",
			expectedProfile: "dev",
			expectedString:  "shop/dev",
		},
		{
			name:            "empty profile becomes default",
			project:         "shop",
			profile:         "  ",
			expectedProfile: xcfg.DefaultProfile,
			expectedString:  "shop/default",
		},
		{
			name:            "values are trimmed",
			project:         " shop ",
			profile:         " prod\n",
			expectedProfile: "prod",
			expectedString:  "shop/prod",
		},
	}

	for _, test := range tests {
		test := test // capture range variable
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			// act
			env := xcfg.NewEnvironment(test.project, test.profile)

			// assert
			assertEqual(t, "shop", env.Project())
			assertEqual(t, test.expectedProfile, env.Profile())
			assertEqual(t, test.expectedString, env.String())
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("success - valid formats", testParseEnvironmentSuccess)
	t.Run("error - invalid formats", testParseEnvironmentReturnsErr)
	t.Run("success - zero value has default profile", testEnvironmentZeroValue)
}

func testParseEnvironmentSuccess(t *testing.T) {
	t.Parallel()

	tests := [...]struct {
		input          string
		expectedString string
	}{
		{input: "shop", expectedString: "shop/default"},
		{input: "shop/dev", expectedString: "shop/dev"},
		{input: " shop / prod ", expectedString: "shop/prod"},
		{input: "shop/release/1.2", expectedString: "shop/release/1.2"},
	}

	for _, test := range tests {
		// act
		env, err := xcfg.ParseEnvironment(test.input)

		// assert
		assertNil(t, err)
		assertEqual(t, test.expectedString, env.String())
	}
}

func testParseEnvironmentReturnsErr(t *testing.T) {
	t.Parallel()

	for _, input := range [...]string{"", "  ", "/dev", " /dev/extra", "shop/", "shop/  "} {
		// act
		_, err := xcfg.ParseEnvironment(input)

		// assert
		if !assertTrue(t, errors.Is(err, xcfg.ErrUnknownEnvironment)) {
			t.Log("input:", input)
		}
	}
}

func testEnvironmentZeroValue(t *testing.T) {
	t.Parallel()

	// arrange
	var env xcfg.Environment

	// act & assert
	assertEqual(t, "", env.Project())
	assertEqual(t, xcfg.DefaultProfile, env.Profile())
	assertEqual(t, "/default", env.String())
}
