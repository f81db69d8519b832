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

package cli

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/jeremyhahn/cognito-sdk/pkg/credential"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
	"github.com/jeremyhahn/cognito-sdk/pkg/sdk"
	"github.com/spf13/viper"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// BaseURL is the passkey backend base URL
	BaseURL string

	// APIKey is an optional passkey backend API key
	APIKey string

	// AppID is the relying party application id
	AppID string

	// UserPoolClientID is the Cognito app client id
	UserPoolClientID string

	// Region is the AWS region of the user pool
	Region string

	// Origin is the WebAuthn origin used by the virtual authenticator
	Origin string

	// FallbackThreshold overrides the passkey confidence threshold
	FallbackThreshold int

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables verbose logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
	}
}

// Load merges the config file and environment into the flag-populated
// configuration. Flags win over file and environment values.
func (c *Config) Load() error {
	v := viper.New()
	v.SetEnvPrefix("COGNITO_SDK")
	v.AutomaticEnv()

	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
	} else {
		v.SetConfigName(".cognito-sdk")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && c.ConfigFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		printVerbose("Using config file: %s", v.ConfigFileUsed())
	}

	if c.BaseURL == "" {
		c.BaseURL = v.GetString("base_url")
	}
	if c.APIKey == "" {
		c.APIKey = v.GetString("api_key")
	}
	if c.AppID == "" {
		c.AppID = v.GetString("app_id")
	}
	if c.UserPoolClientID == "" {
		c.UserPoolClientID = v.GetString("user_pool_client_id")
	}
	if c.Region == "" {
		c.Region = v.GetString("region")
	}
	if c.Origin == "" {
		c.Origin = v.GetString("origin")
	}
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = v.GetInt("fallback_threshold")
	}
	return nil
}

// CreateClient builds the SDK client: the Cognito service client from
// the ambient AWS configuration, the REST passkey backend, and the
// virtual authenticator scoped to the relying party.
func (c *Config) CreateClient(ctx context.Context) (*sdk.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	origin := c.Origin
	if origin == "" {
		origin = "https://" + c.AppID
	}

	return sdk.NewClient(&sdk.Params{
		Config: &sdk.Config{
			AppID:            c.AppID,
			UserPoolClientID: c.UserPoolClientID,
			Backend: passkey.Config{
				BaseURL: c.BaseURL,
				APIKey:  c.APIKey,
			},
			FallbackThreshold: c.FallbackThreshold,
			Debug:             c.Verbose,
		},
		Cognito:     cognitoidentityprovider.NewFromConfig(awsCfg),
		Credentials: credential.NewVirtualProvider(c.AppID, c.AppID, origin),
	})
}
