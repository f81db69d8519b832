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

// Package credential abstracts the WebAuthn ceremony: creating or getting
// a public-key credential given server-issued options. Implementations
// wrap whatever platform capability is available (a browser bridge, a
// platform authenticator, or the virtual authenticator shipped here).
package credential

import (
	"context"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
)

// Provider creates and gets WebAuthn public-key credentials.
//
// Both operations must honor context cancellation by abandoning the
// in-progress ceremony and returning ErrCeremonyAborted; an abort is a
// clean cancellation, not a failure. A platform refusal to produce a
// credential is reported as ErrNoCredential with a descriptive cause.
type Provider interface {
	// Create runs the credential creation (attestation) ceremony and
	// returns the browser-shaped attestation response JSON.
	Create(ctx context.Context, options *protocol.CredentialCreation) (json.RawMessage, error)

	// Get runs the assertion ceremony and returns the browser-shaped
	// assertion response JSON.
	Get(ctx context.Context, options *protocol.CredentialAssertion) (json.RawMessage, error)
}
