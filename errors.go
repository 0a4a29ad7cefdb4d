// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEnvironment is returned when an environment cannot be resolved
	// into a partition by a Source (malformed key, missing project, etc.).
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrNotInitialized is returned by a Source if Fetch or Reload are called
	// before Initialize completed successfully.
	ErrNotInitialized = errors.New("source is not initialized")
)

// ConstructionError is returned by [ProviderFactory] (and by sources' constructors)
// when backend parameters are missing or invalid.
// It is fatal, a provider is never built in this case.
type ConstructionError struct {
	backend string // the backend type parameters were meant for.
	err     error  // the validation error.
}

// NewConstructionError instantiates a new ConstructionError.
func NewConstructionError(backend string, err error) ConstructionError {
	return ConstructionError{backend: backend, err: err}
}

// Error returns string representation of the ConstructionError.
func (e ConstructionError) Error() string {
	return fmt.Sprintf(`illegal "%s" backend configuration: %v`, e.backend, e.err)
}

// Unwrap returns the validation error.
func (e ConstructionError) Unwrap() error {
	return e.err
}

// UnsupportedBackendError is returned by [ProviderFactory] when the requested
// backend type has no registered constructor (consul, for example).
type UnsupportedBackendError struct {
	backend string
}

// NewUnsupportedBackendError instantiates a new UnsupportedBackendError.
func NewUnsupportedBackendError(backend string) UnsupportedBackendError {
	return UnsupportedBackendError{backend: backend}
}

// Error returns string representation of the UnsupportedBackendError.
func (e UnsupportedBackendError) Error() string {
	return fmt.Sprintf(`"%s" backend is not supported`, e.backend)
}

// Backend returns the backend type which is not supported.
func (e UnsupportedBackendError) Backend() string {
	return e.backend
}

// BackendUnavailableError is returned when a backend (remote repository, database,
// file root) cannot be reached.
// It is fatal during Initialize and tolerated during a periodic reload.
type BackendUnavailableError struct {
	backend string
	err     error
}

// NewBackendUnavailableError instantiates a new BackendUnavailableError.
func NewBackendUnavailableError(backend string, err error) BackendUnavailableError {
	return BackendUnavailableError{backend: backend, err: err}
}

// Error returns string representation of the BackendUnavailableError.
func (e BackendUnavailableError) Error() string {
	return fmt.Sprintf(`"%s" backend is unavailable: %v`, e.backend, e.err)
}

// Unwrap returns the original error.
func (e BackendUnavailableError) Unwrap() error {
	return e.err
}

// MalformedFileError is returned when a configuration file cannot be parsed.
type MalformedFileError struct {
	file string
	err  error
}

// NewMalformedFileError instantiates a new MalformedFileError.
func NewMalformedFileError(file string, err error) MalformedFileError {
	return MalformedFileError{file: file, err: err}
}

// Error returns string representation of the MalformedFileError.
func (e MalformedFileError) Error() string {
	return fmt.Sprintf(`malformed configuration file "%s": %v`, e.file, e.err)
}

// Unwrap returns the parse error.
func (e MalformedFileError) Unwrap() error {
	return e.err
}

// File returns the path of the file that could not be parsed.
func (e MalformedFileError) File() string {
	return e.file
}

// PropertyNotFoundError is returned by [GetProperty] when a key is missing
// and no default was given.
type PropertyNotFoundError struct {
	key string
}

// NewPropertyNotFoundError instantiates a new PropertyNotFoundError.
func NewPropertyNotFoundError(key string) PropertyNotFoundError {
	return PropertyNotFoundError{key: key}
}

// Error returns string representation of the PropertyNotFoundError.
func (e PropertyNotFoundError) Error() string {
	return fmt.Sprintf(`property "%s" not found`, e.key)
}

// Key returns the missing key.
func (e PropertyNotFoundError) Key() string {
	return e.key
}

// TypeConversionError is returned by [GetProperty] when a stored value
// cannot be converted to the requested type.
type TypeConversionError struct {
	key    string
	value  string
	target string
	err    error
}

// NewTypeConversionError instantiates a new TypeConversionError.
func NewTypeConversionError(key, value, target string, err error) TypeConversionError {
	return TypeConversionError{key: key, value: value, target: target, err: err}
}

// Error returns string representation of the TypeConversionError.
func (e TypeConversionError) Error() string {
	return fmt.Sprintf(`property "%s": cannot convert "%s" to %s`, e.key, e.value, e.target)
}

// Unwrap returns the cast error, if any.
func (e TypeConversionError) Unwrap() error {
	return e.err
}
