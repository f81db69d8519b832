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
	"encoding/json"
	"time"

	"github.com/jeremyhahn/cognito-sdk/pkg/device"
)

// RegInitRequest starts a passkey registration ceremony on the backend.
type RegInitRequest struct {
	// App is the relying party application id.
	App string `json:"app"`

	// Username identifies the account the passkey will belong to.
	Username string `json:"username"`

	// UsernameType is "email" or "phone", if the backend distinguishes.
	UsernameType string `json:"username_type,omitempty"`

	// DisplayName is the human-readable credential owner name.
	DisplayName string `json:"display_name,omitempty"`

	// DeviceInfo carries client device metadata.
	DeviceInfo *device.Context `json:"device_info,omitempty"`
}

// RegInitResponse carries the server-issued creation options.
type RegInitResponse struct {
	// RegistrationOptions is the WebAuthn credential-creation options
	// JSON to feed into the credential provider.
	RegistrationOptions json.RawMessage `json:"registration_options"`

	// Session correlates init and complete for one ceremony.
	Session string `json:"session,omitempty"`
}

// RegCompleteRequest finishes a registration ceremony.
type RegCompleteRequest struct {
	App      string `json:"app"`
	Username string `json:"username"`

	// AttestationResponse is the browser-shaped attestation JSON.
	AttestationResponse json.RawMessage `json:"attestation_response"`

	Session    string          `json:"session,omitempty"`
	DeviceInfo *device.Context `json:"device_info,omitempty"`
}

// RegCompleteResponse is returned after the backend verified the
// attestation.
type RegCompleteResponse struct {
	// AccessJWT is the backend-issued token forwarded to the identity
	// provider as the challenge answer.
	AccessJWT string `json:"jwt_access"`

	// DeviceID, when present, is a trusted device id the client should
	// persist locally.
	DeviceID string `json:"device_id,omitempty"`

	// Credential describes the stored passkey.
	Credential *Passkey `json:"credential,omitempty"`
}

// AuthInitRequest starts a passkey authentication ceremony.
type AuthInitRequest struct {
	App          string          `json:"app"`
	Username     string          `json:"username"`
	UsernameType string          `json:"username_type,omitempty"`
	DeviceInfo   *device.Context `json:"device_info,omitempty"`
}

// AuthInitResponse carries the server-issued assertion options along
// with the backend's passkey match confidence for this user and device.
type AuthInitResponse struct {
	// AssertionOptions is the WebAuthn request options JSON; empty when
	// the backend found nothing actionable for this user.
	AssertionOptions json.RawMessage `json:"assertion_options,omitempty"`

	Session string `json:"session,omitempty"`

	// Confidence is the backend's 0-100 estimate that a usable passkey
	// exists on this device.
	Confidence int `json:"confidence,omitempty"`

	// FallbackMethods lists alternative authentication methods the
	// backend offers when passkey authentication is unavailable.
	FallbackMethods []string `json:"fallback_methods,omitempty"`
}

// Actionable reports whether initiation produced assertion options the
// client can act on.
func (r *AuthInitResponse) Actionable() bool {
	return r != nil && len(r.AssertionOptions) > 0
}

// AuthCompleteRequest finishes an authentication ceremony.
type AuthCompleteRequest struct {
	App      string `json:"app"`
	Username string `json:"username"`

	// AssertionResponse is the browser-shaped assertion JSON.
	AssertionResponse json.RawMessage `json:"assertion_response"`

	Session string `json:"session,omitempty"`
}

// AuthCompleteResponse is returned after the backend verified the
// assertion.
type AuthCompleteResponse struct {
	AccessJWT string `json:"jwt_access"`
}

// AuthorizeResponse carries the Cognito custom-auth token minted from a
// backend access token.
type AuthorizeResponse struct {
	Token string `json:"token"`
}

// Passkey describes a stored credential as reported by the backend.
type Passkey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}
