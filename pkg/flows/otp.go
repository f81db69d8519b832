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

package flows

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/cognito-sdk/pkg/cognito"
)

// pendingUser is the challenge session held open between OTP init and
// completion.
type pendingUser struct {
	session  *cognito.Session
	metadata map[string]string
}

// BeginOTP starts the email one-time-code sub-protocol: the provider
// must echo the EMAIL_OTP challenge tag to confirm it is ready to
// accept a code. The session is held as the pending user until
// CompleteOTP runs; a second BeginOTP replaces it (last-init-wins).
func (o *Orchestrator) BeginOTP(ctx context.Context, opts *CallOptions) error {
	if opts == nil || opts.Username == "" {
		return WrapError("begin otp", ErrMissingUsername)
	}

	metadata := o.clientMetadata(ModeEmailOTP, opts)
	sess := cognito.NewSession(o.cognito, o.config.UserPoolClientID, opts.Username)

	o.logger.Debugf("flow %s: username=%s state=%s", ModeEmailOTP, opts.Username, stateInit)
	round, err := sess.Start(ctx, metadata)
	if err != nil {
		return err
	}

	round, err = o.echoHandshake(ctx, sess, round, metadata)
	if err != nil {
		return err
	}

	// Tokens here would mean the provider skipped the code exchange.
	if round.Tokens != nil || round.Retry ||
		round.Parameters[cognito.ChallengeKey] != cognito.ChallengeEmailOTP {
		return WrapError("begin otp", fmt.Errorf("%w: expected %s confirmation",
			ErrProtocol, cognito.ChallengeEmailOTP))
	}

	o.mu.Lock()
	o.pending = &pendingUser{session: sess, metadata: metadata}
	o.mu.Unlock()
	return nil
}

// CompleteOTP answers the held session with the emailed code. Success
// discards the pending user and returns an authenticated Result. A
// provider retry signal keeps the pending user and returns
// ErrRetryRequested so the caller can resubmit a corrected code; any
// other failure discards the pending user.
func (o *Orchestrator) CompleteOTP(ctx context.Context, code string) (*Result, error) {
	o.mu.Lock()
	p := o.pending
	o.mu.Unlock()
	if p == nil {
		return nil, WrapError("complete otp", ErrNoPendingUser)
	}

	round, err := p.session.Answer(ctx, code, p.metadata)
	if err != nil {
		o.discardPending(p)
		return nil, err
	}

	if round.Retry {
		return nil, WrapError("complete otp", ErrRetryRequested)
	}

	o.discardPending(p)
	if round.Tokens == nil {
		return nil, WrapError("complete otp", ErrProtocol)
	}

	o.logger.Debugf("flow %s: username=%s state=%s", ModeEmailOTP, p.session.Username(), stateDone)
	return resultFromTokens(round.Tokens), nil
}

// discardPending clears the pending user if it is still the given one.
// A newer BeginOTP wins.
func (o *Orchestrator) discardPending(p *pendingUser) {
	o.mu.Lock()
	if o.pending == p {
		o.pending = nil
	}
	o.mu.Unlock()
}
