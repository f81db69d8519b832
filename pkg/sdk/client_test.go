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

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jeremyhahn/cognito-sdk/pkg/cognito"
	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assertionOptionsJSON = `{"publicKey":{"challenge":"YXNzZXJ0LWNoYWxsZW5nZQ","rpId":"example.com"}}`

const creationOptionsJSON = `{"publicKey":{"challenge":"Y3JlYXRlLWNoYWxsZW5nZQ",` +
	`"rp":{"name":"Example","id":"example.com"},` +
	`"user":{"id":"dXNlci1pZA","name":"alice@example.com","displayName":"Alice"},` +
	`"pubKeyCredParams":[{"type":"public-key","alg":-7}]}}`

// fakeProvider serves both the password flow and a scripted custom-auth
// conversation.
type fakeProvider struct {
	t *testing.T

	// challenges are the scripted custom-auth challenge parameter maps;
	// after they are exhausted the conversation ends with tokens.
	challenges []map[string]string

	idToken        string
	signUpErr      error
	signUps        []string
	answers        []string
	signedOutToken string
}

func (p *fakeProvider) tokens() *types.AuthenticationResultType {
	idToken := p.idToken
	if idToken == "" {
		idToken = "id-token"
	}
	return &types.AuthenticationResultType{
		IdToken:      aws.String(idToken),
		AccessToken:  aws.String("access-token"),
		RefreshToken: aws.String("refresh-token"),
	}
}

func (p *fakeProvider) pop() (map[string]string, bool) {
	if len(p.challenges) == 0 {
		return nil, false
	}
	ch := p.challenges[0]
	p.challenges = p.challenges[1:]
	return ch, true
}

func (p *fakeProvider) InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {

	if params.AuthFlow == types.AuthFlowTypeUserPasswordAuth {
		return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: p.tokens()}, nil
	}

	ch, ok := p.pop()
	if !ok {
		return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: p.tokens()}, nil
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		ChallengeName:       types.ChallengeNameTypeCustomChallenge,
		ChallengeParameters: ch,
		Session:             aws.String("session"),
	}, nil
}

func (p *fakeProvider) RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {

	p.answers = append(p.answers, params.ChallengeResponses["ANSWER"])
	ch, ok := p.pop()
	if !ok {
		return &cognitoidentityprovider.RespondToAuthChallengeOutput{AuthenticationResult: p.tokens()}, nil
	}
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{
		ChallengeName:       types.ChallengeNameTypeCustomChallenge,
		ChallengeParameters: ch,
		Session:             aws.String("session"),
	}, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	p.signUps = append(p.signUps, aws.ToString(params.Username))
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String("sub-1")}, nil
}

func (p *fakeProvider) GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	p.signedOutToken = aws.ToString(params.AccessToken)
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

// fakeBackend scripts the passkey backend.
type fakeBackend struct {
	authInit     *passkey.AuthInitResponse
	authComplete *passkey.AuthCompleteResponse
	regInit      *passkey.RegInitResponse
	regComplete  *passkey.RegCompleteResponse
	authorize    *passkey.AuthorizeResponse
	passkeys     []passkey.Passkey

	listBearer    string
	renameBearer  string
	renamedID     string
	renamedName   string
	deletedID     string
	lastRegBearer string
}

func (b *fakeBackend) RegInit(ctx context.Context, bearer string, req *passkey.RegInitRequest) (*passkey.RegInitResponse, error) {
	b.lastRegBearer = bearer
	return b.regInit, nil
}

func (b *fakeBackend) RegComplete(ctx context.Context, req *passkey.RegCompleteRequest) (*passkey.RegCompleteResponse, error) {
	return b.regComplete, nil
}

func (b *fakeBackend) AuthInit(ctx context.Context, req *passkey.AuthInitRequest) (*passkey.AuthInitResponse, error) {
	return b.authInit, nil
}

func (b *fakeBackend) AuthComplete(ctx context.Context, req *passkey.AuthCompleteRequest) (*passkey.AuthCompleteResponse, error) {
	return b.authComplete, nil
}

func (b *fakeBackend) AuthorizeCognito(ctx context.Context, accessJWT string) (*passkey.AuthorizeResponse, error) {
	return b.authorize, nil
}

func (b *fakeBackend) List(ctx context.Context, bearer string) ([]passkey.Passkey, error) {
	b.listBearer = bearer
	return b.passkeys, nil
}

func (b *fakeBackend) Rename(ctx context.Context, bearer, passkeyID, name string) error {
	b.renameBearer = bearer
	b.renamedID = passkeyID
	b.renamedName = name
	return nil
}

func (b *fakeBackend) Delete(ctx context.Context, bearer, passkeyID string) error {
	b.deletedID = passkeyID
	return nil
}

// ceremonyFake answers every ceremony with a fixed response.
type ceremonyFake struct {
	creates int
	gets    int
}

func (c *ceremonyFake) Create(ctx context.Context, options *protocol.CredentialCreation) (json.RawMessage, error) {
	c.creates++
	return json.RawMessage(`{"id":"cred-1"}`), nil
}

func (c *ceremonyFake) Get(ctx context.Context, options *protocol.CredentialAssertion) (json.RawMessage, error) {
	c.gets++
	return json.RawMessage(`{"id":"cred-1"}`), nil
}

func newTestClient(t *testing.T, provider *fakeProvider, backend *fakeBackend) *Client {
	t.Helper()
	client, err := NewClient(&Params{
		Config: &Config{
			AppID:            "app-1",
			UserPoolClientID: "client-1",
		},
		Cognito:     provider,
		Credentials: &ceremonyFake{},
		Backend:     backend,
	})
	require.NoError(t, err)
	return client
}

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params *Params
	}{
		{name: "nil params", params: nil},
		{name: "missing config", params: &Params{Cognito: &fakeProvider{}, Credentials: &ceremonyFake{}}},
		{
			name: "missing app id",
			params: &Params{
				Config:      &Config{UserPoolClientID: "c"},
				Cognito:     &fakeProvider{},
				Credentials: &ceremonyFake{},
				Backend:     &fakeBackend{},
			},
		},
		{
			name: "missing backend base url",
			params: &Params{
				Config:      &Config{AppID: "a", UserPoolClientID: "c"},
				Cognito:     &fakeProvider{},
				Credentials: &ceremonyFake{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, &fakeProvider{t: t}, &fakeBackend{})

	assert.False(t, client.IsAuthenticated())
	result, err := client.SignInWithPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated)
	assert.True(t, client.IsAuthenticated())

	tokens := client.Tokens()
	require.NotNil(t, tokens)
	assert.Equal(t, "access-token", tokens.AccessToken)
}

func TestCreatePasskey(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{t: t, challenges: []map[string]string{
		{cognito.ChallengeKey: cognito.ChallengeAuthParams},
		{cognito.PublicKeyParam: creationOptionsJSON},
	}}
	backend := &fakeBackend{
		regComplete: &passkey.RegCompleteResponse{AccessJWT: "backend-jwt"},
	}

	client := newTestClient(t, provider, backend)
	result, err := client.CreatePasskey(ctx, &flows.CallOptions{Username: "alice@example.com"})
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated)
	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, []string{cognito.ChallengeAuthParams, "backend-jwt"}, provider.answers)
}

func TestSignInWithAutofill(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{t: t, challenges: []map[string]string{
		{cognito.ChallengeKey: cognito.ChallengeAuthParams},
		{cognito.ChallengeKey: "TOKEN_CHECK"},
	}}
	backend := &fakeBackend{
		authInit: &passkey.AuthInitResponse{
			AssertionOptions: json.RawMessage(assertionOptionsJSON),
			Confidence:       90,
		},
		authComplete: &passkey.AuthCompleteResponse{AccessJWT: "assert-jwt"},
		authorize:    &passkey.AuthorizeResponse{Token: "cognito-token"},
	}

	client := newTestClient(t, provider, backend)
	result, err := client.SignInWithAutofill(ctx, &flows.CallOptions{Username: "alice@example.com"})
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated)

	// The exchanged token is forwarded verbatim as the challenge answer.
	assert.Equal(t, []string{cognito.ChallengeAuthParams, "cognito-token"}, provider.answers)
}

func TestPasskeyCRUD_RequiresSession(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, &fakeProvider{t: t}, &fakeBackend{})

	_, err := client.ListPasskeys(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.ErrorIs(t, client.RenamePasskey(ctx, "pk-1", "name"), ErrNotAuthorized)
	assert.ErrorIs(t, client.DeletePasskey(ctx, "pk-1"), ErrNotAuthorized)
	_, err = client.AddPasskey(ctx, &flows.CallOptions{Username: "alice@example.com"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestPasskeyCRUD(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		passkeys: []passkey.Passkey{{ID: "pk-1", Name: "MacBook"}},
		regInit: &passkey.RegInitResponse{
			RegistrationOptions: json.RawMessage(creationOptionsJSON),
		},
		regComplete: &passkey.RegCompleteResponse{
			Credential: &passkey.Passkey{ID: "pk-2", Name: "YubiKey"},
		},
	}
	client := newTestClient(t, &fakeProvider{t: t}, backend)

	_, err := client.SignInWithPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	keys, err := client.ListPasskeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "access-token", backend.listBearer)

	require.NoError(t, client.RenamePasskey(ctx, "pk-1", "Work laptop"))
	assert.Equal(t, "pk-1", backend.renamedID)
	assert.Equal(t, "Work laptop", backend.renamedName)

	require.NoError(t, client.DeletePasskey(ctx, "pk-1"))
	assert.Equal(t, "pk-1", backend.deletedID)

	added, err := client.AddPasskey(ctx, &flows.CallOptions{Username: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "pk-2", added.ID)
	assert.Equal(t, "access-token", backend.lastRegBearer)
}

func TestEmailOTPFlow(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{t: t, challenges: []map[string]string{
		{cognito.ChallengeKey: cognito.ChallengeAuthParams},
		{cognito.ChallengeKey: cognito.ChallengeEmailOTP},
	}}

	client := newTestClient(t, provider, &fakeBackend{})
	require.NoError(t, client.BeginEmailOTP(ctx, &flows.CallOptions{Username: "alice@example.com"}))
	assert.Equal(t, []string{"alice@example.com"}, provider.signUps)

	result, err := client.CompleteEmailOTP(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated)
	assert.True(t, client.IsAuthenticated())
}

func TestBeginEmailOTP_ExistingUser(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{
		t:         t,
		signUpErr: &types.UsernameExistsException{Message: aws.String("exists")},
		challenges: []map[string]string{
			{cognito.ChallengeKey: cognito.ChallengeEmailOTP},
		},
	}

	client := newTestClient(t, provider, &fakeBackend{})
	require.NoError(t, client.BeginEmailOTP(ctx, &flows.CallOptions{Username: "alice@example.com"}))
}

func TestSessionInfo(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	idToken := signedIDToken(t, jwt.MapClaims{
		"sub":              "sub-123",
		"cognito:username": "alice",
		"email":            "alice@example.com",
		"iat":              time.Now().Unix(),
		"exp":              expires.Unix(),
	})

	client := newTestClient(t, &fakeProvider{t: t, idToken: idToken}, &fakeBackend{})

	_, err := client.SessionInfo()
	assert.ErrorIs(t, err, ErrNoIDToken)

	_, err = client.SignInWithPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	info, err := client.SessionInfo()
	require.NoError(t, err)
	assert.Equal(t, "sub-123", info.Sub)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, expires.Unix(), info.ExpiresAt.Unix())
	assert.False(t, info.Expired())
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{t: t}
	client := newTestClient(t, provider, &fakeBackend{})

	assert.ErrorIs(t, client.SignOut(ctx), ErrNotAuthorized)

	_, err := client.SignInWithPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, client.SignOut(ctx))
	assert.Equal(t, "access-token", provider.signedOutToken)
	assert.False(t, client.IsAuthenticated())
	assert.Nil(t, client.Tokens())
}
