// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"fmt"
	"strings"
)

// DefaultProfile is the profile used when an environment does not specify one.
const DefaultProfile = "default"

const envSeparator = "/"

// Environment identifies a configuration partition by a project and a profile.
// It is an immutable value.
type Environment struct {
	project string
	profile string
}

// NewEnvironment instantiates a new Environment.
// An empty profile is replaced with [DefaultProfile].
func NewEnvironment(project, profile string) Environment {
	project = strings.TrimSpace(project)
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}

	return Environment{project: project, profile: profile}
}

// ParseEnvironment parses an environment in the form "project" or "project/profile".
// The profile is everything after the first separator, so it may contain slashes
// (like a "release/1.2" git branch).
// It returns [ErrUnknownEnvironment] for an empty project or an empty profile after the separator.
func ParseEnvironment(env string) (Environment, error) {
	project, profile, hasProfile := strings.Cut(strings.TrimSpace(env), envSeparator)
	switch {
	case strings.TrimSpace(project) == "":
		return Environment{}, fmt.Errorf("%w: %q has no project", ErrUnknownEnvironment, env)
	case hasProfile && strings.TrimSpace(profile) == "":
		return Environment{}, fmt.Errorf("%w: %q has an empty profile", ErrUnknownEnvironment, env)
	}

	return NewEnvironment(project, profile), nil
}

// Project returns the project segment.
func (env Environment) Project() string {
	return env.project
}

// Profile returns the profile segment.
func (env Environment) Profile() string {
	if env.profile == "" { // zero value
		return DefaultProfile
	}

	return env.profile
}

// String returns "project/profile".
func (env Environment) String() string {
	return env.project + envSeparator + env.Profile()
}

// validate checks the environment names a project.
func (env Environment) validate() error {
	if env.project == "" {
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, env.String())
	}

	return nil
}

// validatePath checks the environment can be safely used as a relative directory path.
func (env Environment) validatePath() error {
	for _, segment := range [...]string{env.project, env.Profile()} {
		if segment == "" || segment == "." || segment == ".." ||
			strings.ContainsAny(segment, `/\`) {
			return fmt.Errorf("%w: %q", ErrUnknownEnvironment, env.String())
		}
	}

	return nil
}
