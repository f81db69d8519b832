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
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/descope/virtualwebauthn"
	"github.com/go-webauthn/webauthn/protocol"
)

// VirtualProvider is a Provider backed by a virtual (software)
// authenticator. It produces valid attestation and assertion responses
// without any browser or platform authenticator, which makes it suitable
// for headless clients, the CLI, and tests.
type VirtualProvider struct {
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator

	mu          sync.Mutex
	credentials []virtualwebauthn.Credential
}

// NewVirtualProvider creates a virtual authenticator provider scoped to
// the given relying party.
func NewVirtualProvider(rpID, rpName, origin string) *VirtualProvider {
	return &VirtualProvider{
		rp: virtualwebauthn.RelyingParty{
			ID:     rpID,
			Name:   rpName,
			Origin: origin,
		},
		authenticator: virtualwebauthn.NewAuthenticator(),
	}
}

// Create runs the attestation ceremony against the virtual authenticator.
func (p *VirtualProvider) Create(ctx context.Context, options *protocol.CredentialCreation) (json.RawMessage, error) {
	if options == nil {
		return nil, WrapError("create credential", ErrInvalidOptions)
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapError("create credential", ErrCeremonyAborted)
	}

	optionsJSON, err := json.Marshal(options.Response)
	if err != nil {
		return nil, WrapError("create credential", err)
	}

	parsed, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	if err != nil {
		return nil, &CeremonyError{Op: "create credential", Err: ErrInvalidOptions}
	}

	cred := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	response := virtualwebauthn.CreateAttestationResponse(p.rp, p.authenticator, cred, *parsed)

	// The ceremony is instant here; re-check so an abort that raced the
	// response is still honored and the credential is not retained.
	if err := ctx.Err(); err != nil {
		return nil, WrapError("create credential", ErrCeremonyAborted)
	}

	p.mu.Lock()
	p.credentials = append(p.credentials, cred)
	p.authenticator.AddCredential(cred)
	p.mu.Unlock()

	return json.RawMessage(response), nil
}

// Get runs the assertion ceremony against the virtual authenticator.
func (p *VirtualProvider) Get(ctx context.Context, options *protocol.CredentialAssertion) (json.RawMessage, error) {
	if options == nil {
		return nil, WrapError("get credential", ErrInvalidOptions)
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapError("get credential", ErrCeremonyAborted)
	}

	optionsJSON, err := json.Marshal(options.Response)
	if err != nil {
		return nil, WrapError("get credential", err)
	}

	parsed, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	if err != nil {
		return nil, &CeremonyError{Op: "get credential", Err: ErrInvalidOptions}
	}

	cred, ok := p.findCredential(parsed.AllowCredentials)
	if !ok {
		return nil, &CeremonyError{Op: "get credential", Err: ErrNoCredential}
	}

	response := virtualwebauthn.CreateAssertionResponse(p.rp, p.authenticator, cred, *parsed)

	if err := ctx.Err(); err != nil {
		return nil, WrapError("get credential", ErrCeremonyAborted)
	}

	return json.RawMessage(response), nil
}

// findCredential selects a credential satisfying the allow list. An empty
// allow list is the discoverable-credential case and matches the most
// recently created credential.
func (p *VirtualProvider) findCredential(allow []string) (virtualwebauthn.Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.credentials) == 0 {
		return virtualwebauthn.Credential{}, false
	}
	if len(allow) == 0 {
		return p.credentials[len(p.credentials)-1], true
	}
	for _, id := range allow {
		for _, cred := range p.credentials {
			if base64.RawURLEncoding.EncodeToString(cred.ID) == id {
				return cred, true
			}
		}
	}
	return virtualwebauthn.Credential{}, false
}
