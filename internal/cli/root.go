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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global configuration
	globalConfig *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cognito-cli",
	Short: "cognito-sdk CLI - Passkey authentication for Cognito user pools",
	Long: `cognito-cli exercises the cognito-sdk authentication flows from the
command line: sign up, password and passkey sign-in, email one-time
codes, and passkey management against a Cognito user pool bridged to a
FIDO2 passkey backend.

WebAuthn ceremonies run against a built-in virtual authenticator, so
credentials created here live for the duration of the process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return globalConfig.Load()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global config
	globalConfig = NewConfig()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&globalConfig.ConfigFile, "config", "",
		"config file (default is $HOME/.cognito-sdk.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.BaseURL, "base-url", "",
		"passkey backend base URL")
	rootCmd.PersistentFlags().StringVar(&globalConfig.AppID, "app-id", "",
		"relying party application id")
	rootCmd.PersistentFlags().StringVar(&globalConfig.UserPoolClientID, "client-id", "",
		"Cognito user pool app client id")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Region, "region", "",
		"AWS region of the user pool")
	rootCmd.PersistentFlags().StringVar(&globalConfig.Origin, "origin", "",
		"WebAuthn origin (default https://<app-id>)")
	rootCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(passkeyCmd)
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(globalConfig.OutputFormat, os.Stderr)
	_ = printer.PrintError(err)
	os.Exit(1)
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if globalConfig.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
