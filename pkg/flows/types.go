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
	"github.com/jeremyhahn/cognito-sdk/pkg/cognito"
	"github.com/jeremyhahn/cognito-sdk/pkg/device"
)

// Mode selects the authentication flow driven through the custom-auth
// challenge conversation. The value is stamped into ClientMetadata as
// authentication_type so the backend routes verification accordingly.
type Mode string

const (
	// ModeFIDO2Create registers a new passkey during authentication.
	ModeFIDO2Create Mode = "FIDO2_CREATE"

	// ModeFIDO2Get authenticates with an existing passkey.
	ModeFIDO2Get Mode = "FIDO2_GET"

	// ModeAccessToken exchanges a pre-obtained backend token; the
	// challenge answer is the token verbatim, no ceremony.
	ModeAccessToken Mode = "ACCESS_TOKEN"

	// ModeEmailOTP authenticates with an emailed one-time code. Driven
	// through BeginOTP/CompleteOTP, not Authenticate.
	ModeEmailOTP Mode = "EMAIL_OTP"
)

// Valid reports whether the mode is one the orchestrator understands.
func (m Mode) Valid() bool {
	switch m {
	case ModeFIDO2Create, ModeFIDO2Get, ModeAccessToken, ModeEmailOTP:
		return true
	}
	return false
}

// MetadataAuthType is the ClientMetadata key carrying the Mode.
const MetadataAuthType = "authentication_type"

// MetadataOptions is the ClientMetadata key carrying the serialized
// per-session options blob.
const MetadataOptions = "options"

// Result is the normalized outcome of an authentication flow. Exactly
// one of the following holds for any Result the orchestrator returns:
// IsAuthenticated with tokens, or IsFallback with the offered methods.
// Never both.
type Result struct {
	IDToken      string
	AccessToken  string
	RefreshToken string

	IsAuthenticated bool

	// IsFallback is set when passkey authentication was unavailable and
	// a registered fallback handler accepted the flow instead.
	IsFallback bool

	// FallbackMethods lists the alternative methods the backend offered,
	// populated only on fallback.
	FallbackMethods []string
}

// FallbackHandler is invoked when passkey authentication is unavailable
// for a user and the caller opted into fallback. It receives the
// username and the backend's offered alternative methods.
type FallbackHandler func(username string, methods []string)

// CallOptions carries the per-call inputs for one authentication flow.
type CallOptions struct {
	// Username identifies the account (required).
	Username string

	// UsernameType is "email" or "phone" when the backend distinguishes.
	UsernameType string

	// DisplayName is the human-readable owner name for new credentials.
	DisplayName string

	// AccessToken is the pre-obtained backend token for ModeAccessToken.
	AccessToken string

	// Metadata is caller-supplied ClientMetadata merged under the
	// mode-specific keys. Values must be strings.
	Metadata map[string]string

	// Abort governs cancellation of the WebAuthn ceremony this call may
	// run. Registering it lets a later competing call cancel this one.
	Abort *AbortController

	// OnFallback, when set, accepts the flow instead of rejecting when
	// no usable passkey is found (ModeFIDO2Get only).
	OnFallback FallbackHandler
}

// innerOptions is the structured blob serialized into ClientMetadata
// under MetadataOptions; consumed by the backend's challenge evaluator.
type innerOptions struct {
	DeviceInfo   *device.Context `json:"device_info,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	UsernameType string          `json:"username_type,omitempty"`
}

// state labels the phase of one authentication flow, for debug logging.
type state int

const (
	stateInit state = iota
	stateAwaitingHandshake
	stateAwaitingCredential
	stateAwaitingBackendVerification
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAwaitingHandshake:
		return "awaiting_handshake"
	case stateAwaitingCredential:
		return "awaiting_credential"
	case stateAwaitingBackendVerification:
		return "awaiting_backend_verification"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// resultFromTokens builds the terminal success Result from provider
// tokens.
func resultFromTokens(t *cognito.Tokens) *Result {
	return &Result{
		IDToken:         t.IDToken,
		AccessToken:     t.AccessToken,
		RefreshToken:    t.RefreshToken,
		IsAuthenticated: true,
	}
}
