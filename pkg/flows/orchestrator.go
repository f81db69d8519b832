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

// Package flows implements the custom-authentication state machine: the
// challenge/response conversation with the identity provider,
// interleaved with the WebAuthn credential layer and the passkey
// backend, across the passkey-creation, passkey-assertion,
// token-exchange, and email-OTP modes.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/jeremyhahn/cognito-sdk/pkg/cognito"
	"github.com/jeremyhahn/cognito-sdk/pkg/credential"
	"github.com/jeremyhahn/cognito-sdk/pkg/device"
	"github.com/jeremyhahn/cognito-sdk/pkg/logging"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
	"github.com/jeremyhahn/cognito-sdk/pkg/storage"
)

// DefaultFallbackThreshold is the minimum backend match confidence
// (0-100) required to attempt a passkey assertion.
const DefaultFallbackThreshold = 80

// Config configures the authentication orchestrator.
type Config struct {
	// AppID is the relying party application id (required).
	AppID string `yaml:"app_id" json:"app_id" mapstructure:"app_id"`

	// UserPoolClientID is the identity provider app client id (required).
	UserPoolClientID string `yaml:"user_pool_client_id" json:"user_pool_client_id" mapstructure:"user_pool_client_id"`

	// FallbackThreshold is the confidence score below which passkey
	// authentication falls back. Default: DefaultFallbackThreshold.
	FallbackThreshold int `yaml:"fallback_threshold" json:"fallback_threshold" mapstructure:"fallback_threshold"`

	// InclusiveThreshold makes a score equal to the threshold fall back
	// as well. Default: false (strict less-than).
	InclusiveThreshold bool `yaml:"inclusive_threshold" json:"inclusive_threshold" mapstructure:"inclusive_threshold"`

	// Debug enables verbose state logging.
	Debug bool `yaml:"debug" json:"debug" mapstructure:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.AppID == "" {
		return errors.New("app id is required")
	}
	if c.UserPoolClientID == "" {
		return errors.New("user pool client id is required")
	}
	if c.FallbackThreshold < 0 || c.FallbackThreshold > 100 {
		return fmt.Errorf("fallback threshold must be 0-100, got %d", c.FallbackThreshold)
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = DefaultFallbackThreshold
	}
}

// Params holds the dependencies for creating an Orchestrator.
type Params struct {
	Config      *Config
	Cognito     cognito.API
	Backend     passkey.Client
	Credentials credential.Provider
	Flags       storage.FlagStore
	Device      *device.Context
	Logger      *logging.Logger
}

// Orchestrator drives one IdentityChallengeSession per call through the
// correct challenge-response cycle for the selected mode, invoking the
// credential provider and passkey backend as needed and normalizing the
// outcome into a Result.
//
// A single Orchestrator serves one logical caller session: it holds the
// active ceremony controller and at most one pending OTP user
// (last-init-wins). Concurrent OTP flows for different users require
// separate instances.
type Orchestrator struct {
	config      *Config
	cognito     cognito.API
	backend     passkey.Client
	credentials credential.Provider
	flags       storage.FlagStore
	device      *device.Context
	logger      *logging.Logger

	mu      sync.Mutex
	active  *AbortController
	pending *pendingUser
}

// NewOrchestrator creates an orchestrator from the given parameters.
func NewOrchestrator(params *Params) (*Orchestrator, error) {
	if params == nil {
		return nil, errors.New("params are required")
	}
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Cognito == nil {
		return nil, errors.New("cognito API client is required")
	}
	if params.Backend == nil {
		return nil, errors.New("passkey backend client is required")
	}
	if params.Credentials == nil {
		return nil, errors.New("credential provider is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	flags := params.Flags
	if flags == nil {
		flags = storage.NewMemoryFlagStore()
	}
	dev := params.Device
	if dev == nil {
		dev = device.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = logging.NewLogger(params.Config.Debug)
	}

	return &Orchestrator{
		config:      params.Config,
		cognito:     params.Cognito,
		backend:     params.Backend,
		credentials: params.Credentials,
		flags:       flags,
		device:      dev,
		logger:      logger,
	}, nil
}

// Device returns the device context stamped into backend requests.
func (o *Orchestrator) Device() *device.Context {
	return o.device
}

// Flags returns the flag store backing local authentication markers.
func (o *Orchestrator) Flags() storage.FlagStore {
	return o.flags
}

// Authenticate runs one complete authentication flow in the given mode
// and returns exactly one terminal outcome: an authenticated Result, a
// fallback Result, or an error. ModeEmailOTP is driven through
// BeginOTP/CompleteOTP instead.
func (o *Orchestrator) Authenticate(ctx context.Context, mode Mode, opts *CallOptions) (*Result, error) {
	if err := validateCall(mode, opts); err != nil {
		return nil, err
	}

	metadata := o.clientMetadata(mode, opts)
	sess := cognito.NewSession(o.cognito, o.config.UserPoolClientID, opts.Username)

	o.logger.Debugf("flow %s: username=%s state=%s", mode, opts.Username, stateInit)
	round, err := sess.Start(ctx, metadata)
	if err != nil {
		return nil, err
	}

	for {
		round, err = o.echoHandshake(ctx, sess, round, metadata)
		if err != nil {
			return nil, err
		}

		if round.Tokens != nil {
			o.logger.Debugf("flow %s: username=%s state=%s", mode, opts.Username, stateDone)
			return resultFromTokens(round.Tokens), nil
		}
		if round.Retry {
			return nil, WrapError("authenticate", ErrRetryRequested)
		}

		var answer string
		switch mode {
		case ModeFIDO2Create:
			answer, err = o.completeRegistration(ctx, sess.Username(), opts, round.Parameters)
		case ModeFIDO2Get:
			var fallback *Result
			answer, fallback, err = o.completeAssertion(ctx, sess.Username(), opts, round.Parameters)
			if fallback != nil {
				return fallback, nil
			}
		case ModeAccessToken:
			// Direct pass-through: the answer is the caller's token,
			// verbatim, with no backend round-trip.
			answer = opts.AccessToken
		}
		if err != nil {
			return nil, err
		}

		o.logger.Debugf("flow %s: username=%s state=%s", mode, opts.Username, stateAwaitingBackendVerification)
		round, err = sess.Answer(ctx, answer, metadata)
		if err != nil {
			return nil, err
		}
	}
}

// RegisterPasskey adds a passkey to an already-authenticated account:
// registration init and complete run directly against the backend under
// the bearer token, with no identity-provider conversation.
func (o *Orchestrator) RegisterPasskey(ctx context.Context, bearer string, opts *CallOptions) (*passkey.RegCompleteResponse, error) {
	if opts == nil || opts.Username == "" {
		return nil, WrapError("register passkey", ErrMissingUsername)
	}

	init, err := o.backend.RegInit(ctx, bearer, &passkey.RegInitRequest{
		App:          o.config.AppID,
		Username:     opts.Username,
		UsernameType: opts.UsernameType,
		DisplayName:  opts.DisplayName,
		DeviceInfo:   o.device,
	})
	if err != nil {
		return nil, err
	}

	var creation protocol.CredentialCreation
	if err := json.Unmarshal(init.RegistrationOptions, &creation); err != nil {
		return nil, WrapError("parse registration options", err)
	}

	ceremonyCtx, cancel := o.claimCeremony(ctx, opts.Abort)
	defer cancel()

	attestation, err := o.credentials.Create(ceremonyCtx, &creation)
	if err != nil {
		return nil, err
	}

	resp, err := o.backend.RegComplete(ctx, &passkey.RegCompleteRequest{
		App:                 o.config.AppID,
		Username:            opts.Username,
		AttestationResponse: attestation,
		Session:             init.Session,
		DeviceInfo:          o.device,
	})
	if err != nil {
		return nil, err
	}

	o.persistTrustedDevice(ctx, opts.Username, resp.DeviceID)
	return resp, nil
}

// AutofillAssertion runs the conditional-UI assertion path: an
// independent ceremony and backend exchange outside any
// identity-provider conversation. On success it records the
// autofill-used marker and returns the custom-auth token to feed into a
// ModeAccessToken flow.
func (o *Orchestrator) AutofillAssertion(ctx context.Context, opts *CallOptions) (string, error) {
	if opts == nil || opts.Username == "" {
		return "", WrapError("autofill assertion", ErrMissingUsername)
	}

	init, err := o.backend.AuthInit(ctx, &passkey.AuthInitRequest{
		App:          o.config.AppID,
		Username:     opts.Username,
		UsernameType: opts.UsernameType,
		DeviceInfo:   o.device,
	})
	if err != nil {
		return "", err
	}
	if !init.Actionable() {
		return "", WrapError("autofill assertion", ErrNoPasskeyDetected)
	}

	accessJWT, err := o.assert(ctx, opts, init)
	if err != nil {
		return "", err
	}

	authorized, err := o.backend.AuthorizeCognito(ctx, accessJWT)
	if err != nil {
		return "", err
	}

	if err := o.flags.Set(ctx, storage.AutofillUsedKey(opts.Username), "true"); err != nil {
		o.logger.Warnf("record autofill marker: %v", err)
	}
	return authorized.Token, nil
}

// completeRegistration handles the substantive FIDO2_CREATE challenge:
// parse creation options, run the ceremony, verify with the backend,
// and return the backend token as the challenge answer.
func (o *Orchestrator) completeRegistration(ctx context.Context, username string, opts *CallOptions, params map[string]string) (string, error) {
	raw := params[cognito.PublicKeyParam]
	if raw == "" {
		return "", WrapError("registration challenge", ErrProtocol)
	}

	var creation protocol.CredentialCreation
	if err := json.Unmarshal([]byte(raw), &creation); err != nil {
		return "", WrapError("parse creation options", err)
	}

	o.logger.Debugf("flow %s: username=%s state=%s", ModeFIDO2Create, username, stateAwaitingCredential)
	ceremonyCtx, cancel := o.claimCeremony(ctx, opts.Abort)
	defer cancel()

	attestation, err := o.credentials.Create(ceremonyCtx, &creation)
	if err != nil {
		return "", err
	}

	resp, err := o.backend.RegComplete(ctx, &passkey.RegCompleteRequest{
		App:                 o.config.AppID,
		Username:            username,
		AttestationResponse: attestation,
		DeviceInfo:          o.device,
	})
	if err != nil {
		return "", err
	}

	o.persistTrustedDevice(ctx, username, resp.DeviceID)
	return resp.AccessJWT, nil
}

// completeAssertion handles the substantive FIDO2_GET challenge. It
// returns either the challenge answer, a terminal fallback Result, or
// an error — the single local fallback-vs-reject decision point.
func (o *Orchestrator) completeAssertion(ctx context.Context, username string, opts *CallOptions, params map[string]string) (string, *Result, error) {
	init, err := o.backend.AuthInit(ctx, &passkey.AuthInitRequest{
		App:          o.config.AppID,
		Username:     username,
		UsernameType: opts.UsernameType,
		DeviceInfo:   o.device,
	})
	if err != nil {
		if passkey.IsNotFound(err) {
			fallback, ferr := o.fallbackOrReject(username, opts, nil)
			return "", fallback, ferr
		}
		return "", nil, err
	}

	if !init.Actionable() || (o.lowConfidence(init.Confidence) && !o.autofillUsed(ctx, username)) {
		fallback, ferr := o.fallbackOrReject(username, opts, init.FallbackMethods)
		return "", fallback, ferr
	}

	accessJWT, err := o.assert(ctx, opts, init)
	if err != nil {
		return "", nil, err
	}
	return accessJWT, nil, nil
}

// assert runs the assertion ceremony for an actionable init result and
// completes it with the backend.
func (o *Orchestrator) assert(ctx context.Context, opts *CallOptions, init *passkey.AuthInitResponse) (string, error) {
	var assertion protocol.CredentialAssertion
	if err := json.Unmarshal(init.AssertionOptions, &assertion); err != nil {
		return "", WrapError("parse assertion options", err)
	}

	o.logger.Debugf("flow %s: username=%s state=%s", ModeFIDO2Get, opts.Username, stateAwaitingCredential)
	ceremonyCtx, cancel := o.claimCeremony(ctx, opts.Abort)
	defer cancel()

	response, err := o.credentials.Get(ceremonyCtx, &assertion)
	if err != nil {
		return "", err
	}

	complete, err := o.backend.AuthComplete(ctx, &passkey.AuthCompleteRequest{
		App:               o.config.AppID,
		Username:          opts.Username,
		AssertionResponse: response,
		Session:           init.Session,
	})
	if err != nil {
		return "", err
	}
	return complete.AccessJWT, nil
}

// fallbackOrReject resolves the no-passkey branch: invoke the fallback
// handler if registered, otherwise reject.
func (o *Orchestrator) fallbackOrReject(username string, opts *CallOptions, methods []string) (*Result, error) {
	if opts.OnFallback == nil {
		return nil, WrapError("passkey authentication", ErrNoPasskeyDetected)
	}
	opts.OnFallback(username, methods)
	return &Result{
		IsFallback:      true,
		FallbackMethods: methods,
	}, nil
}

// claimCeremony makes the given controller the active ceremony,
// aborting any previous active controller first. A new ceremony always
// supersedes a pending one; failure to cancel never blocks the new
// ceremony. The returned context is canceled when the controller
// aborts.
func (o *Orchestrator) claimCeremony(ctx context.Context, ac *AbortController) (context.Context, context.CancelFunc) {
	o.mu.Lock()
	prev := o.active
	o.active = ac
	o.mu.Unlock()

	if prev != nil && prev != ac && !prev.Aborted() {
		o.logger.Debug("aborting superseded ceremony")
		prev.Abort()
	}

	if ac == nil {
		return context.WithCancel(ctx)
	}
	return ac.Bind(ctx)
}

// echoHandshake answers AUTH_PARAMS handshake rounds by echoing the
// sentinel, before any substantive processing, and returns the first
// non-handshake round.
func (o *Orchestrator) echoHandshake(ctx context.Context, sess *cognito.Session, round *cognito.Round, metadata map[string]string) (*cognito.Round, error) {
	var err error
	for round.Tokens == nil && !round.Retry &&
		round.Parameters[cognito.ChallengeKey] == cognito.ChallengeAuthParams {

		o.logger.Debugf("flow: username=%s state=%s", sess.Username(), stateAwaitingHandshake)
		round, err = sess.Answer(ctx, cognito.ChallengeAuthParams, metadata)
		if err != nil {
			return nil, err
		}
	}
	return round, nil
}

// clientMetadata builds the ClientMetadata bag sent with every
// challenge answer: caller metadata plus the mode tag and the
// serialized options blob. Values are strings.
func (o *Orchestrator) clientMetadata(mode Mode, opts *CallOptions) map[string]string {
	md := make(map[string]string, len(opts.Metadata)+2)
	for k, v := range opts.Metadata {
		md[k] = v
	}

	inner := innerOptions{
		DeviceInfo:   o.device,
		DisplayName:  opts.DisplayName,
		UsernameType: opts.UsernameType,
	}
	blob, err := json.Marshal(inner)
	if err == nil {
		md[MetadataOptions] = string(blob)
	}

	md[MetadataAuthType] = string(mode)
	return md
}

// lowConfidence applies the configured threshold and comparison to a
// backend confidence score.
func (o *Orchestrator) lowConfidence(score int) bool {
	if o.config.InclusiveThreshold {
		return score <= o.config.FallbackThreshold
	}
	return score < o.config.FallbackThreshold
}

// autofillUsed reports whether the user previously completed an
// autofill assertion on this device.
func (o *Orchestrator) autofillUsed(ctx context.Context, username string) bool {
	value, err := o.flags.Get(ctx, storage.AutofillUsedKey(username))
	return err == nil && value != ""
}

// persistTrustedDevice stores a backend-issued trusted device id. The
// flag is advisory, so a store failure does not fail the flow.
func (o *Orchestrator) persistTrustedDevice(ctx context.Context, username, deviceID string) {
	if deviceID == "" {
		return
	}
	if err := o.flags.Set(ctx, storage.TrustedDeviceKey(username), deviceID); err != nil {
		o.logger.Warnf("persist trusted device id: %v", err)
	}
}

// validateCall checks the mode/options combination before any network
// traffic.
func validateCall(mode Mode, opts *CallOptions) error {
	if !mode.Valid() {
		return WrapError("authenticate", fmt.Errorf("%w: %q", ErrInvalidMode, mode))
	}
	if mode == ModeEmailOTP {
		return WrapError("authenticate", fmt.Errorf("%w: %s is driven through BeginOTP/CompleteOTP", ErrInvalidMode, mode))
	}
	if opts == nil || opts.Username == "" {
		return WrapError("authenticate", ErrMissingUsername)
	}
	if mode == ModeAccessToken && opts.AccessToken == "" {
		return WrapError("authenticate", ErrMissingAccessToken)
	}
	return nil
}
