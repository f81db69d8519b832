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

package flows

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication flows.
var (
	// ErrInvalidMode is returned for an unknown or unsupported mode.
	// This is a programming error, never retried.
	ErrInvalidMode = errors.New("invalid authentication mode")

	// ErrMissingUsername is returned when a flow is started without a
	// username.
	ErrMissingUsername = errors.New("username is required")

	// ErrMissingAccessToken is returned when ModeAccessToken is invoked
	// without a token to exchange.
	ErrMissingAccessToken = errors.New("access token is required")

	// ErrNoPasskeyDetected is returned when passkey authentication is
	// unavailable for the user and no fallback handler is registered.
	ErrNoPasskeyDetected = errors.New("no passkey detected for user")

	// ErrRetryRequested is returned when the identity provider re-issued
	// a challenge without a payload. The caller decides whether to
	// resubmit; the orchestrator never retries.
	ErrRetryRequested = errors.New("identity provider requested a retry")

	// ErrNoPendingUser is returned when CompleteOTP runs without a prior
	// successful BeginOTP.
	ErrNoPendingUser = errors.New("no pending user: OTP flow not initialized")

	// ErrProtocol is returned when the provider or backend sends a
	// challenge shape the protocol does not define. Fatal to the flow.
	ErrProtocol = errors.New("protocol violation in challenge conversation")
)

// FlowError wraps an error with the flow operation that produced it.
type FlowError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FlowError{Op: op, Err: err}
}
