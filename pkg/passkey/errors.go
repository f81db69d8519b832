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

package passkey

import (
	"errors"
	"fmt"
)

// Machine-readable backend error codes.
const (
	// CodeNotFound indicates no passkey exists for the user; routed to
	// the fallback branch by the orchestrator.
	CodeNotFound = "not_found"
)

// Sentinel errors for backend client operations.
var (
	// ErrMissingBearer is returned when a bearer-authenticated operation
	// is invoked without a token.
	ErrMissingBearer = errors.New("bearer token required")

	// ErrMissingBaseURL is returned when the client is constructed
	// without a backend base URL.
	ErrMissingBaseURL = errors.New("backend base URL is required")
)

// APIError is the uniform error for non-2xx backend responses. Code
// carries the backend's machine-readable msgCode when present and is
// used by callers to branch fallback logic.
type APIError struct {
	Status  int    // HTTP status code
	Message string // Human-readable message
	Code    string // Optional machine-readable code
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// IsNotFound returns true if the error is a backend not-found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeNotFound || apiErr.Status == 404
}
