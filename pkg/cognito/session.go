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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Challenge parameter keys and tag values used by the custom-auth
// protocol.
const (
	// ChallengeKey is the challenge-parameters key tagging the current
	// challenge type.
	ChallengeKey = "challenge"

	// PublicKeyParam is the challenge-parameters key carrying serialized
	// WebAuthn options.
	PublicKeyParam = "public_key"

	// ChallengeAuthParams is the handshake sentinel: a challenge tagged
	// with it must be answered by echoing the same value.
	ChallengeAuthParams = "AUTH_PARAMS"

	// ChallengeEmailOTP tags the provider's confirmation that it is
	// ready to accept an email one-time code.
	ChallengeEmailOTP = "EMAIL_OTP"
)

// Tokens is the provider-issued token set at the end of a successful
// conversation.
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
}

// Round is the normalized outcome of one challenge round-trip: exactly
// one of Tokens, Parameters, or Retry describes the provider's reply.
type Round struct {
	// Tokens is non-nil when the provider issued full tokens.
	Tokens *Tokens

	// Parameters holds the next challenge's parameters.
	Parameters map[string]string

	// Retry is true when the provider re-issued the challenge without a
	// substantive payload, asking the caller to answer again. Never
	// retried automatically.
	Retry bool
}

// Session manages one custom-authentication conversation with the
// identity provider for a single username. Round-trips are strictly
// sequential: the provider does not issue a new challenge until the
// previous answer is acknowledged, and a Session must not be shared
// across goroutines.
//
// Custom-auth conversations never carry a real password; the flow is
// initiated with the username alone.
type Session struct {
	api      API
	clientID string
	username string

	session  *string
	started  bool
	terminal bool
}

// NewSession creates a challenge session for one user.
func NewSession(api API, clientID, username string) *Session {
	return &Session{
		api:      api,
		clientID: clientID,
		username: username,
	}
}

// Username returns the username this session authenticates.
func (s *Session) Username() string {
	return s.username
}

// Start initiates the custom-auth conversation and returns the first
// round.
func (s *Session) Start(ctx context.Context, metadata map[string]string) (*Round, error) {
	if s.started {
		return nil, fmt.Errorf("start session: %w", ErrAlreadyTerminal)
	}
	s.started = true

	out, err := s.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeCustomAuth,
		ClientId: aws.String(s.clientID),
		AuthParameters: map[string]string{
			"USERNAME": s.username,
		},
		ClientMetadata: metadata,
	})
	if err != nil {
		s.terminal = true
		return nil, fmt.Errorf("initiate auth: %w", err)
	}

	s.session = out.Session
	return s.normalize(out.ChallengeName, out.ChallengeParameters, out.AuthenticationResult)
}

// Answer sends a challenge answer and returns the next round. Metadata
// values must be strings; structured fields are serialized JSON.
func (s *Session) Answer(ctx context.Context, answer string, metadata map[string]string) (*Round, error) {
	if !s.started {
		return nil, fmt.Errorf("answer challenge: %w", ErrNotStarted)
	}
	if s.terminal {
		return nil, fmt.Errorf("answer challenge: %w", ErrAlreadyTerminal)
	}

	out, err := s.api.RespondToAuthChallenge(ctx, &cognitoidentityprovider.RespondToAuthChallengeInput{
		ChallengeName: types.ChallengeNameTypeCustomChallenge,
		ClientId:      aws.String(s.clientID),
		ChallengeResponses: map[string]string{
			"USERNAME": s.username,
			"ANSWER":   answer,
		},
		Session:        s.session,
		ClientMetadata: metadata,
	})
	if err != nil {
		s.terminal = true
		return nil, fmt.Errorf("respond to challenge: %w", err)
	}

	s.session = out.Session
	return s.normalize(out.ChallengeName, out.ChallengeParameters, out.AuthenticationResult)
}

// normalize maps a provider reply onto a Round and tracks terminal
// state.
func (s *Session) normalize(name types.ChallengeNameType, params map[string]string,
	result *types.AuthenticationResultType) (*Round, error) {

	if result != nil {
		s.terminal = true
		return &Round{
			Tokens: &Tokens{
				IDToken:      aws.ToString(result.IdToken),
				AccessToken:  aws.ToString(result.AccessToken),
				RefreshToken: aws.ToString(result.RefreshToken),
			},
		}, nil
	}

	if name != types.ChallengeNameTypeCustomChallenge {
		s.terminal = true
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedChallenge, name)
	}

	// A custom challenge carrying neither a challenge tag nor WebAuthn
	// options is the provider asking for the previous answer again.
	if params[ChallengeKey] == "" && params[PublicKeyParam] == "" {
		return &Round{Parameters: params, Retry: true}, nil
	}

	return &Round{Parameters: params}, nil
}
