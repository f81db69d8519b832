// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of cognito-sdk.
//
// cognito-sdk is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package credential

import (
	"errors"
	"fmt"
)

// Sentinel errors for WebAuthn ceremonies.
var (
	// ErrCeremonyAborted is returned when a ceremony is canceled through
	// the caller's context or abort controller.
	ErrCeremonyAborted = errors.New("webauthn ceremony aborted")

	// ErrNoCredential is returned when the platform declines or cannot
	// produce a credential for the given options.
	ErrNoCredential = errors.New("no credential produced")

	// ErrInvalidOptions is returned when server-issued options cannot be
	// consumed by the provider.
	ErrInvalidOptions = errors.New("invalid credential options")
)

// CeremonyError wraps an error with the ceremony that failed.
type CeremonyError struct {
	Op  string // Ceremony that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CeremonyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with a ceremony name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CeremonyError{Op: op, Err: err}
}

// IsAborted returns true if the error indicates a clean cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, ErrCeremonyAborted)
}
