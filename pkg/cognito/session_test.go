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
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReply is one provider response in a scripted conversation.
type scriptedReply struct {
	challenge map[string]string
	tokens    *types.AuthenticationResultType
	name      types.ChallengeNameType
	err       error
}

// fakeAPI replays a scripted custom-auth conversation and records every
// answer it receives.
type fakeAPI struct {
	t       *testing.T
	replies []scriptedReply

	initiations int
	answers     []map[string]string
	metadata    []map[string]string
	sessions    []*string
}

func (f *fakeAPI) next() scriptedReply {
	f.t.Helper()
	require.NotEmpty(f.t, f.replies, "conversation script exhausted")
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply
}

func (f *fakeAPI) output(reply scriptedReply, session string) (types.ChallengeNameType, map[string]string, *types.AuthenticationResultType, *string) {
	if reply.tokens != nil {
		return "", nil, reply.tokens, nil
	}
	name := reply.name
	if name == "" {
		name = types.ChallengeNameTypeCustomChallenge
	}
	return name, reply.challenge, nil, aws.String(session)
}

func (f *fakeAPI) InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {

	f.initiations++
	f.metadata = append(f.metadata, params.ClientMetadata)

	assert.Equal(f.t, types.AuthFlowTypeCustomAuth, params.AuthFlow)
	assert.NotContains(f.t, params.AuthParameters, "PASSWORD")

	reply := f.next()
	if reply.err != nil {
		return nil, reply.err
	}
	name, challenge, tokens, session := f.output(reply, "session-0")
	return &cognitoidentityprovider.InitiateAuthOutput{
		ChallengeName:        name,
		ChallengeParameters:  challenge,
		AuthenticationResult: tokens,
		Session:              session,
	}, nil
}

func (f *fakeAPI) RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {

	f.answers = append(f.answers, params.ChallengeResponses)
	f.metadata = append(f.metadata, params.ClientMetadata)
	f.sessions = append(f.sessions, params.Session)

	assert.Equal(f.t, types.ChallengeNameTypeCustomChallenge, params.ChallengeName)

	reply := f.next()
	if reply.err != nil {
		return nil, reply.err
	}
	name, challenge, tokens, session := f.output(reply, "session-1")
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{
		ChallengeName:        name,
		ChallengeParameters:  challenge,
		AuthenticationResult: tokens,
		Session:              session,
	}, nil
}

func (f *fakeAPI) SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String("sub-1")}, nil
}

func (f *fakeAPI) GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

func testTokens() *types.AuthenticationResultType {
	return &types.AuthenticationResultType{
		IdToken:      aws.String("id-token"),
		AccessToken:  aws.String("access-token"),
		RefreshToken: aws.String("refresh-token"),
	}
}

func TestSession_FullConversation(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{challenge: map[string]string{ChallengeKey: ChallengeAuthParams}},
		{challenge: map[string]string{PublicKeyParam: `{"challenge":"abc"}`}},
		{tokens: testTokens()},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")
	assert.Equal(t, "alice@example.com", sess.Username())

	round, err := sess.Start(ctx, map[string]string{"authentication_type": "FIDO2_CREATE"})
	require.NoError(t, err)
	require.NotNil(t, round.Parameters)
	assert.Equal(t, ChallengeAuthParams, round.Parameters[ChallengeKey])
	assert.False(t, round.Retry)

	round, err = sess.Answer(ctx, ChallengeAuthParams, nil)
	require.NoError(t, err)
	require.NotNil(t, round.Parameters)
	assert.NotEmpty(t, round.Parameters[PublicKeyParam])

	round, err = sess.Answer(ctx, "backend-jwt", nil)
	require.NoError(t, err)
	require.NotNil(t, round.Tokens)
	assert.Equal(t, "id-token", round.Tokens.IDToken)
	assert.Equal(t, "access-token", round.Tokens.AccessToken)
	assert.Equal(t, "refresh-token", round.Tokens.RefreshToken)

	// Answers carried username and were sequential.
	require.Len(t, api.answers, 2)
	assert.Equal(t, "alice@example.com", api.answers[0]["USERNAME"])
	assert.Equal(t, ChallengeAuthParams, api.answers[0]["ANSWER"])
	assert.Equal(t, "backend-jwt", api.answers[1]["ANSWER"])

	// The provider session token is threaded through every round-trip.
	require.Len(t, api.sessions, 2)
	assert.Equal(t, "session-0", aws.ToString(api.sessions[0]))
	assert.Equal(t, "session-1", aws.ToString(api.sessions[1]))
}

func TestSession_RetrySignal(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{challenge: map[string]string{ChallengeKey: ChallengeEmailOTP}},
		{challenge: map[string]string{}},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")

	round, err := sess.Start(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ChallengeEmailOTP, round.Parameters[ChallengeKey])

	// A bare re-challenge surfaces as Retry, never auto-answered.
	round, err = sess.Answer(ctx, "000000", nil)
	require.NoError(t, err)
	assert.True(t, round.Retry)
	assert.Nil(t, round.Tokens)
	require.Len(t, api.answers, 1)
}

func TestSession_UnexpectedChallenge(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{name: types.ChallengeNameTypePasswordVerifier, challenge: map[string]string{"SALT": "x"}},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")
	_, err := sess.Start(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedChallenge)

	// The session is terminal after a protocol error.
	_, err = sess.Answer(ctx, "anything", nil)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{tokens: testTokens()},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")

	// Answer before Start.
	_, err := sess.Answer(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrNotStarted)

	round, err := sess.Start(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, round.Tokens)

	// Answer after terminal.
	_, err = sess.Answer(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	// Start twice.
	_, err = sess.Start(ctx, nil)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestSession_ProviderFailurePropagates(t *testing.T) {
	ctx := context.Background()
	providerErr := &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{err: providerErr},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")
	_, err := sess.Start(ctx, nil)
	require.Error(t, err)
	assert.True(t, IsNotAuthorized(err))
	assert.NotEmpty(t, APIErrorCode(err))
}

func TestSession_MetadataForwarded(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t, replies: []scriptedReply{
		{challenge: map[string]string{ChallengeKey: ChallengeAuthParams}},
		{tokens: testTokens()},
	}}

	sess := NewSession(api, "client-1", "alice@example.com")
	md := map[string]string{"authentication_type": "ACCESS_TOKEN", "options": `{"device_id":"d1"}`}

	_, err := sess.Start(ctx, md)
	require.NoError(t, err)
	_, err = sess.Answer(ctx, "token", md)
	require.NoError(t, err)

	require.Len(t, api.metadata, 2)
	for _, got := range api.metadata {
		assert.Equal(t, md, got)
	}
}

func TestUserPool_PasswordAuth(t *testing.T) {
	ctx := context.Background()

	// PasswordAuth goes through InitiateAuth with USER_PASSWORD_AUTH, so
	// the custom-auth assertions in fakeAPI do not apply here.
	api := &passwordFakeAPI{result: testTokens()}
	pool := NewUserPool(api, "client-1")

	tokens, err := pool.PasswordAuth(ctx, "alice@example.com", "hunter2", nil)
	require.NoError(t, err)
	assert.Equal(t, "access-token", tokens.AccessToken)
	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, api.lastFlow)
	assert.Equal(t, "hunter2", api.lastParams["PASSWORD"])

	sub, err := pool.SignUp(ctx, "bob@example.com", "secret", map[string]string{"email": "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub)

	require.NoError(t, pool.SignOut(ctx, "access-token"))
	assert.Equal(t, "access-token", api.lastSignOutToken)
}

func TestUserPool_PasswordAuth_UnexpectedChallenge(t *testing.T) {
	api := &passwordFakeAPI{challenge: types.ChallengeNameTypeSmsMfa}
	pool := NewUserPool(api, "client-1")

	_, err := pool.PasswordAuth(context.Background(), "alice@example.com", "hunter2", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedChallenge)
}

// passwordFakeAPI covers the non-custom-auth user pool operations.
type passwordFakeAPI struct {
	result           *types.AuthenticationResultType
	challenge        types.ChallengeNameType
	lastFlow         types.AuthFlowType
	lastParams       map[string]string
	lastSignOutToken string
}

func (f *passwordFakeAPI) InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.lastFlow = params.AuthFlow
	f.lastParams = params.AuthParameters
	return &cognitoidentityprovider.InitiateAuthOutput{
		ChallengeName:        f.challenge,
		AuthenticationResult: f.result,
	}, nil
}

func (f *passwordFakeAPI) RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {
	return nil, errors.New("not implemented")
}

func (f *passwordFakeAPI) SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String("sub-1")}, nil
}

func (f *passwordFakeAPI) GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput,
	optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	f.lastSignOutToken = aws.ToString(params.AccessToken)
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}
