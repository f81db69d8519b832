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

// Package storage provides the key-value capability used for locally
// persisted authentication flags. The core depends only on the FlagStore
// interface; applications bring their own persistence (browser local
// storage, a file, a keyring) and the package ships an in-memory
// implementation for development and testing.
package storage

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when a flag has never been set or has
// been deleted.
var ErrFlagNotFound = errors.New("flag not found")

// FlagStore is a minimal key-value store for per-user local flags such
// as the trusted device id and the autofill-used marker. Writes are
// last-write-wins; no cross-process locking is assumed.
type FlagStore interface {
	// Get retrieves a flag value. Returns ErrFlagNotFound if the key
	// has never been set.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a flag value, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a flag. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// TrustedDeviceKey returns the flag key holding the backend-issued
// trusted device id for a user.
func TrustedDeviceKey(username string) string {
	return "trusted_device:" + username
}

// AutofillUsedKey returns the flag key recording that a user has
// previously completed an autofill (conditional UI) assertion.
func AutofillUsedKey(username string) string {
	return "autofill_used:" + username
}
