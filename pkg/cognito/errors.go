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

package cognito

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for challenge sessions.
var (
	// ErrNotStarted is returned when a session operation runs before
	// Start.
	ErrNotStarted = errors.New("challenge session not started")

	// ErrAlreadyTerminal is returned when a session is used after it
	// produced tokens or failed.
	ErrAlreadyTerminal = errors.New("challenge session already terminal")

	// ErrUnexpectedChallenge is returned when the provider sends a
	// challenge shape the custom-auth protocol does not define.
	ErrUnexpectedChallenge = errors.New("unexpected challenge from identity provider")
)

// IsUsernameExists returns true if the error indicates the user already
// exists in the pool.
func IsUsernameExists(err error) bool {
	var e *types.UsernameExistsException
	return errors.As(err, &e)
}

// IsNotAuthorized returns true if the provider rejected the credentials
// or token.
func IsNotAuthorized(err error) bool {
	var e *types.NotAuthorizedException
	return errors.As(err, &e)
}

// IsUserNotFound returns true if the user does not exist in the pool.
func IsUserNotFound(err error) bool {
	var e *types.UserNotFoundException
	return errors.As(err, &e)
}

// APIErrorCode returns the provider's error code for any Cognito API
// error, or the empty string.
func APIErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
