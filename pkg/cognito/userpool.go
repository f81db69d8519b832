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

// UserPool exposes the non-custom-auth user-pool primitives the facade
// consumes: sign-up, password sign-in, and sign-out.
type UserPool struct {
	api      API
	clientID string
}

// NewUserPool creates a user-pool wrapper for one app client.
func NewUserPool(api API, clientID string) *UserPool {
	return &UserPool{
		api:      api,
		clientID: clientID,
	}
}

// SignUp registers a new user and returns the provider-assigned user
// sub.
func (p *UserPool) SignUp(ctx context.Context, username, password string, attributes map[string]string) (string, error) {
	attrs := make([]types.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	out, err := p.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(p.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}

	return aws.ToString(out.UserSub), nil
}

// PasswordAuth signs a user in with USER_PASSWORD_AUTH and returns the
// issued tokens.
func (p *UserPool) PasswordAuth(ctx context.Context, username, password string, metadata map[string]string) (*Tokens, error) {
	out, err := p.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
		ClientMetadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("password auth: %w", err)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("password auth: %w: %s", ErrUnexpectedChallenge, out.ChallengeName)
	}

	return &Tokens{
		IDToken:      aws.ToString(out.AuthenticationResult.IdToken),
		AccessToken:  aws.ToString(out.AuthenticationResult.AccessToken),
		RefreshToken: aws.ToString(out.AuthenticationResult.RefreshToken),
	}, nil
}

// SignOut invalidates all of the user's tokens across devices.
func (p *UserPool) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.api.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return fmt.Errorf("global sign out: %w", err)
	}
	return nil
}
