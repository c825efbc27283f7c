// Package common defines the error taxonomy and shared constants used by the
// workout API server and its clients. Callers should match errors with
// errors.Is; details are attached by wrapping, e.g.
//
//	fmt.Errorf("%w: key not found", common.ErrAuthentication)
package common

import "errors"

var (
	// ErrAuthentication covers a missing, malformed, expired or otherwise
	// unverifiable bearer token, including an unknown signing key.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation is returned for malformed input, before storage is touched.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a row does not exist or is not owned by
	// the caller.
	ErrNotFound = errors.New("not found")

	// ErrInfrastructure wraps failures of storage or the identity provider.
	ErrInfrastructure = errors.New("infrastructure error")
)
