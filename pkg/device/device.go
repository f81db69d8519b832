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

// Package device supplies device and browser metadata consumed when
// building passkey backend requests and challenge metadata.
package device

import (
	"github.com/google/uuid"
)

// Context carries the device metadata stamped into every backend request.
// All fields are serialized as part of the options blob sent with each
// challenge answer, so values must be stable for the life of a session.
type Context struct {
	// DeviceID uniquely identifies this device installation.
	DeviceID string `json:"device_id"`

	// ScreenWidth is the display width in pixels, if known.
	ScreenWidth int `json:"screen_width,omitempty"`

	// ScreenHeight is the display height in pixels, if known.
	ScreenHeight int `json:"screen_height,omitempty"`

	// UserAgent identifies the client software.
	UserAgent string `json:"user_agent,omitempty"`
}

// Option is a functional option for configuring a device Context.
type Option func(*Context)

// WithDeviceID sets a previously persisted device id instead of
// generating a new one.
func WithDeviceID(id string) Option {
	return func(c *Context) {
		c.DeviceID = id
	}
}

// WithScreen sets the display dimensions.
func WithScreen(width, height int) Option {
	return func(c *Context) {
		c.ScreenWidth = width
		c.ScreenHeight = height
	}
}

// WithUserAgent sets the client user agent string.
func WithUserAgent(ua string) Option {
	return func(c *Context) {
		c.UserAgent = ua
	}
}

// New creates a device Context. A random device id is generated unless
// one is supplied with WithDeviceID.
func New(opts ...Option) *Context {
	c := &Context{
		DeviceID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
