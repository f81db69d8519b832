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
	"sync"
)

// AbortController is a caller-held cancellation handle for one WebAuthn
// ceremony. The orchestrator guarantees at most one active ceremony per
// logical caller session: starting a new ceremony aborts the previous
// controller before the new ceremony begins. Safe for concurrent use.
type AbortController struct {
	mu      sync.Mutex
	done    chan struct{}
	aborted bool
}

// NewAbortController creates an un-aborted controller.
func NewAbortController() *AbortController {
	return &AbortController{
		done: make(chan struct{}),
	}
}

// Abort cancels the ceremony bound to this controller. Idempotent.
func (a *AbortController) Abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.aborted {
		return
	}
	a.aborted = true
	close(a.done)
}

// Aborted reports whether Abort has been called.
func (a *AbortController) Aborted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}

// Done returns a channel closed when the controller is aborted.
func (a *AbortController) Done() <-chan struct{} {
	return a.done
}

// Bind derives a context that is canceled when either the parent is
// canceled or the controller is aborted. The returned CancelFunc must
// be called to release the watcher.
func (a *AbortController) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-a.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
