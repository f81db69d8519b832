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

// signupCmd registers a new user in the pool
var signupCmd = &cobra.Command{
	Use:   "signup <username>",
	Short: "Register a new user in the user pool",
	Long: `Register a new user with a password. The username doubles as the
email attribute unless --email is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		password, _ := cmd.Flags().GetString("password")
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			email = username
		}

		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		printVerbose("Signing up %s", username)
		sub, err := client.SignUp(cmd.Context(), username, password, map[string]string{
			"email": email,
		})
		if err != nil {
			handleError(fmt.Errorf("sign up failed: %w", err))
			return
		}

		if err := printer.PrintSuccess(fmt.Sprintf("User created: %s", sub)); err != nil {
			handleError(err)
		}
	},
}

func init() {
	signupCmd.Flags().String("password", "", "password for the new user (required)")
	signupCmd.Flags().String("email", "", "email attribute (defaults to the username)")
	_ = signupCmd.MarkFlagRequired("password")
}
