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

// Package sdk is the public facade: it maps end-user intents (create a
// passkey, sign in, manage passkeys, OTP) onto the authentication
// orchestrator and holds the current session tokens.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jeremyhahn/cognito-sdk/pkg/cognito"
	"github.com/jeremyhahn/cognito-sdk/pkg/credential"
	"github.com/jeremyhahn/cognito-sdk/pkg/device"
	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/logging"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
	"github.com/jeremyhahn/cognito-sdk/pkg/storage"
)

// Params holds the dependencies for creating a Client.
type Params struct {
	Config      *Config
	Cognito     cognito.API
	Credentials credential.Provider

	// Backend overrides the REST client built from Config.Backend.
	Backend passkey.Client

	// Flags overrides the in-memory flag store.
	Flags storage.FlagStore

	// Device overrides the generated device context.
	Device *device.Context

	Logger *logging.Logger
}

// Client is the SDK entry point. It serves one logical end-user session
// and holds that session's tokens; operations requiring authentication
// use the stored access token as the bearer.
type Client struct {
	config       *Config
	orchestrator *flows.Orchestrator
	backend      passkey.Client
	pool         *cognito.UserPool
	logger       *logging.Logger

	mu     sync.Mutex
	tokens *cognito.Tokens
}

// NewClient creates an SDK client from the given parameters.
func NewClient(params *Params) (*Client, error) {
	if params == nil {
		return nil, errors.New("params are required")
	}
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Cognito == nil {
		return nil, errors.New("cognito API client is required")
	}
	if params.Credentials == nil {
		return nil, errors.New("credential provider is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	backend := params.Backend
	if backend == nil {
		rest, err := passkey.NewRESTClient(&params.Config.Backend)
		if err != nil {
			return nil, err
		}
		backend = rest
	}

	logger := params.Logger
	if logger == nil {
		logger = logging.NewLogger(params.Config.Debug)
	}

	orchestrator, err := flows.NewOrchestrator(&flows.Params{
		Config:      params.Config.flowsConfig(),
		Cognito:     params.Cognito,
		Backend:     backend,
		Credentials: params.Credentials,
		Flags:       params.Flags,
		Device:      params.Device,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		config:       params.Config,
		orchestrator: orchestrator,
		backend:      backend,
		pool:         cognito.NewUserPool(params.Cognito, params.Config.UserPoolClientID),
		logger:       logger,
	}, nil
}

// SignUp registers a new user in the pool and returns the user sub.
func (c *Client) SignUp(ctx context.Context, username, password string, attributes map[string]string) (string, error) {
	return c.pool.SignUp(ctx, username, password, attributes)
}

// SignInWithPassword signs in with USER_PASSWORD_AUTH and stores the
// session tokens.
func (c *Client) SignInWithPassword(ctx context.Context, username, password string) (*flows.Result, error) {
	tokens, err := c.pool.PasswordAuth(ctx, username, password, nil)
	if err != nil {
		return nil, err
	}
	c.setTokens(tokens)
	return &flows.Result{
		IDToken:         tokens.IDToken,
		AccessToken:     tokens.AccessToken,
		RefreshToken:    tokens.RefreshToken,
		IsAuthenticated: true,
	}, nil
}

// CreatePasskey registers a new passkey through the custom-auth
// conversation and signs the user in with it.
func (c *Client) CreatePasskey(ctx context.Context, opts *flows.CallOptions) (*flows.Result, error) {
	return c.authenticate(ctx, flows.ModeFIDO2Create, opts)
}

// AddPasskey registers an additional passkey for the signed-in user
// directly against the backend, outside any provider conversation.
func (c *Client) AddPasskey(ctx context.Context, opts *flows.CallOptions) (*passkey.Passkey, error) {
	bearer, err := c.bearer()
	if err != nil {
		return nil, err
	}
	resp, err := c.orchestrator.RegisterPasskey(ctx, bearer, opts)
	if err != nil {
		return nil, err
	}
	return resp.Credential, nil
}

// SignInWithPasskey signs in with an existing passkey. When a fallback
// handler is registered in opts and no usable passkey is found, the
// result carries IsFallback instead of tokens.
func (c *Client) SignInWithPasskey(ctx context.Context, opts *flows.CallOptions) (*flows.Result, error) {
	return c.authenticate(ctx, flows.ModeFIDO2Get, opts)
}

// SignInWithAutofill completes a conditional-UI assertion out of band,
// exchanges it for a custom-auth token, and feeds that token through
// the token-exchange flow.
func (c *Client) SignInWithAutofill(ctx context.Context, opts *flows.CallOptions) (*flows.Result, error) {
	token, err := c.orchestrator.AutofillAssertion(ctx, opts)
	if err != nil {
		return nil, err
	}

	exchange := *opts
	exchange.AccessToken = token
	return c.authenticate(ctx, flows.ModeAccessToken, &exchange)
}

// SignInWithToken exchanges a pre-obtained custom-auth token for
// session tokens.
func (c *Client) SignInWithToken(ctx context.Context, username, token string) (*flows.Result, error) {
	return c.authenticate(ctx, flows.ModeAccessToken, &flows.CallOptions{
		Username:    username,
		AccessToken: token,
	})
}

// BeginEmailOTP starts the email one-time-code flow. The user is
// created on first use; an existing user is signed in as usual.
func (c *Client) BeginEmailOTP(ctx context.Context, opts *flows.CallOptions) error {
	if opts == nil || opts.Username == "" {
		return flows.ErrMissingUsername
	}

	// Opportunistic sign-up with a throwaway password so first-time
	// users can authenticate by code alone.
	_, err := c.pool.SignUp(ctx, opts.Username, ephemeralPassword(), map[string]string{
		"email": opts.Username,
	})
	if err != nil && !cognito.IsUsernameExists(err) {
		return fmt.Errorf("provision otp user: %w", err)
	}

	return c.orchestrator.BeginOTP(ctx, opts)
}

// CompleteEmailOTP answers the pending OTP session with the emailed
// code and stores the session tokens on success. A provider retry
// signal surfaces as flows.ErrRetryRequested and the code may be
// resubmitted.
func (c *Client) CompleteEmailOTP(ctx context.Context, code string) (*flows.Result, error) {
	result, err := c.orchestrator.CompleteOTP(ctx, code)
	if err != nil {
		return nil, err
	}
	c.storeResult(result)
	return result, nil
}

// ListPasskeys returns the signed-in user's registered passkeys.
func (c *Client) ListPasskeys(ctx context.Context) ([]passkey.Passkey, error) {
	bearer, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.List(ctx, bearer)
}

// RenamePasskey changes a passkey's display name.
func (c *Client) RenamePasskey(ctx context.Context, passkeyID, name string) error {
	bearer, err := c.bearer()
	if err != nil {
		return err
	}
	return c.backend.Rename(ctx, bearer, passkeyID, name)
}

// DeletePasskey removes a passkey.
func (c *Client) DeletePasskey(ctx context.Context, passkeyID string) error {
	bearer, err := c.bearer()
	if err != nil {
		return err
	}
	return c.backend.Delete(ctx, bearer, passkeyID)
}

// SignOut invalidates the user's tokens everywhere and clears the
// stored session.
func (c *Client) SignOut(ctx context.Context) error {
	bearer, err := c.bearer()
	if err != nil {
		return err
	}
	if err := c.pool.SignOut(ctx, bearer); err != nil {
		return err
	}
	c.setTokens(nil)
	return nil
}

// Tokens returns a copy of the current session tokens, or nil when
// signed out.
func (c *Client) Tokens() *cognito.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		return nil
	}
	copied := *c.tokens
	return &copied
}

// IsAuthenticated reports whether a session token is held.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens != nil && c.tokens.AccessToken != ""
}

// authenticate runs a flow and stores tokens on authenticated success.
func (c *Client) authenticate(ctx context.Context, mode flows.Mode, opts *flows.CallOptions) (*flows.Result, error) {
	result, err := c.orchestrator.Authenticate(ctx, mode, opts)
	if err != nil {
		return nil, err
	}
	c.storeResult(result)
	return result, nil
}

func (c *Client) storeResult(result *flows.Result) {
	if !result.IsAuthenticated {
		return
	}
	c.setTokens(&cognito.Tokens{
		IDToken:      result.IDToken,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

func (c *Client) setTokens(tokens *cognito.Tokens) {
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
}

// bearer returns the stored access token or ErrNotAuthorized.
func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil || c.tokens.AccessToken == "" {
		return "", ErrNotAuthorized
	}
	return c.tokens.AccessToken, nil
}

// ephemeralPassword generates a throwaway password satisfying common
// pool complexity policies.
func ephemeralPassword() string {
	return "Aa1!" + uuid.NewString()
}
