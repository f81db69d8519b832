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
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreationOptions(t *testing.T) *protocol.CredentialCreation {
	t.Helper()

	challenge := make([]byte, 32)
	_, err := rand.Read(challenge)
	require.NoError(t, err)

	return &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			Challenge: challenge,
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: "Example Corp"},
				ID:               "example.com",
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: "alice@example.com"},
				DisplayName:      "Alice",
				ID:               protocol.URLEncodedBase64([]byte("user-alice")),
			},
			Parameters: []protocol.CredentialParameter{
				{
					Type:      protocol.PublicKeyCredentialType,
					Algorithm: webauthncose.AlgES256,
				},
			},
		},
	}
}

func testAssertionOptions(t *testing.T, allowed ...[]byte) *protocol.CredentialAssertion {
	t.Helper()

	challenge := make([]byte, 32)
	_, err := rand.Read(challenge)
	require.NoError(t, err)

	descriptors := make([]protocol.CredentialDescriptor, len(allowed))
	for i, id := range allowed {
		descriptors[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: id,
		}
	}

	return &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:          challenge,
			RelyingPartyID:     "example.com",
			AllowedCredentials: descriptors,
		},
	}
}

func credentialIDFromAttestation(t *testing.T, attestation json.RawMessage) []byte {
	t.Helper()

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(attestation, &resp))
	require.NotEmpty(t, resp.ID)

	id, err := base64.RawURLEncoding.DecodeString(resp.ID)
	require.NoError(t, err)
	return id
}

func TestVirtualProvider_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	attestation, err := provider.Create(ctx, testCreationOptions(t))
	require.NoError(t, err)
	require.NotEmpty(t, attestation)

	credID := credentialIDFromAttestation(t, attestation)

	assertion, err := provider.Get(ctx, testAssertionOptions(t, credID))
	require.NoError(t, err)

	var parsed struct {
		ID       string `json:"id"`
		Response struct {
			Signature string `json:"signature"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(assertion, &parsed))
	assert.NotEmpty(t, parsed.Response.Signature)
}

func TestVirtualProvider_Get_Discoverable(t *testing.T) {
	ctx := context.Background()
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	_, err := provider.Create(ctx, testCreationOptions(t))
	require.NoError(t, err)

	// Empty allow list selects a discoverable credential.
	assertion, err := provider.Get(ctx, testAssertionOptions(t))
	require.NoError(t, err)
	assert.NotEmpty(t, assertion)
}

func TestVirtualProvider_Get_NoCredential(t *testing.T) {
	ctx := context.Background()
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	_, err := provider.Get(ctx, testAssertionOptions(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestVirtualProvider_Get_UnknownCredential(t *testing.T) {
	ctx := context.Background()
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	_, err := provider.Create(ctx, testCreationOptions(t))
	require.NoError(t, err)

	_, err = provider.Get(ctx, testAssertionOptions(t, []byte("unknown-credential")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestVirtualProvider_AbortIsClean(t *testing.T) {
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Create(ctx, testCreationOptions(t))
	require.Error(t, err)
	assert.True(t, IsAborted(err))
	assert.NotErrorIs(t, err, ErrNoCredential)

	_, err = provider.Get(ctx, testAssertionOptions(t))
	require.Error(t, err)
	assert.True(t, IsAborted(err))
}

func TestVirtualProvider_NilOptions(t *testing.T) {
	ctx := context.Background()
	provider := NewVirtualProvider("example.com", "Example Corp", "https://example.com")

	_, err := provider.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = provider.Get(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
