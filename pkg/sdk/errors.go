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

package sdk

import "errors"

// Sentinel errors for SDK client operations.
var (
	// ErrNotAuthorized is returned when an operation requires an active
	// session token and none is held.
	ErrNotAuthorized = errors.New("not authorized: no active session")

	// ErrNoIDToken is returned when session info is requested without a
	// stored id token.
	ErrNoIDToken = errors.New("no id token in current session")
)
