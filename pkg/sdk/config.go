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
	"errors"

	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
)

// Config configures the SDK client.
type Config struct {
	// AppID is the relying party application id (required).
	AppID string `yaml:"app_id" json:"app_id" mapstructure:"app_id"`

	// UserPoolClientID is the Cognito app client id (required).
	UserPoolClientID string `yaml:"user_pool_client_id" json:"user_pool_client_id" mapstructure:"user_pool_client_id"`

	// Backend configures the passkey backend REST client. Ignored when a
	// backend client is injected directly.
	Backend passkey.Config `yaml:"backend" json:"backend" mapstructure:"backend"`

	// FallbackThreshold is the passkey match confidence below which
	// sign-in falls back. Default: flows.DefaultFallbackThreshold.
	FallbackThreshold int `yaml:"fallback_threshold" json:"fallback_threshold" mapstructure:"fallback_threshold"`

	// InclusiveThreshold makes a score equal to the threshold fall back
	// as well.
	InclusiveThreshold bool `yaml:"inclusive_threshold" json:"inclusive_threshold" mapstructure:"inclusive_threshold"`

	// Debug enables verbose flow logging.
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
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = flows.DefaultFallbackThreshold
	}
	c.Backend.SetDefaults()
}

// flowsConfig maps the SDK configuration onto the orchestrator's.
func (c *Config) flowsConfig() *flows.Config {
	return &flows.Config{
		AppID:              c.AppID,
		UserPoolClientID:   c.UserPoolClientID,
		FallbackThreshold:  c.FallbackThreshold,
		InclusiveThreshold: c.InclusiveThreshold,
		Debug:              c.Debug,
	}
}
