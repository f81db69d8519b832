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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/sdk"
	"github.com/spf13/cobra"
)

// signinCmd groups the sign-in variants
var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to the user pool",
	Long:  `Sign in with a password, a passkey, a pre-obtained token, or an emailed one-time code.`,
}

// signinPasswordCmd signs in with USER_PASSWORD_AUTH
var signinPasswordCmd = &cobra.Command{
	Use:   "password <username>",
	Short: "Sign in with a password",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		password, _ := cmd.Flags().GetString("password")
		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		result, err := client.SignInWithPassword(cmd.Context(), username, password)
		if err != nil {
			handleError(fmt.Errorf("sign in failed: %w", err))
			return
		}
		printSignedIn(printer, client, result)
	},
}

// signinPasskeyCmd signs in with an existing passkey
var signinPasskeyCmd = &cobra.Command{
	Use:   "passkey <username>",
	Short: "Sign in with a passkey",
	Long: `Sign in with an existing passkey through the custom-auth conversation.
With --allow-fallback, an unavailable or low-confidence passkey resolves
with the backend's offered fallback methods instead of an error.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		usernameType, _ := cmd.Flags().GetString("username-type")
		allowFallback, _ := cmd.Flags().GetBool("allow-fallback")

		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		opts := &flows.CallOptions{
			Username:     username,
			UsernameType: usernameType,
			Abort:        flows.NewAbortController(),
		}
		if allowFallback {
			opts.OnFallback = func(user string, methods []string) {
				printVerbose("Fallback offered for %s: %s", user, strings.Join(methods, ", "))
			}
		}

		result, err := client.SignInWithPasskey(cmd.Context(), opts)
		if err != nil {
			handleError(fmt.Errorf("passkey sign in failed: %w", err))
			return
		}
		printSignedIn(printer, client, result)
	},
}

// signinTokenCmd exchanges a pre-obtained custom-auth token
var signinTokenCmd = &cobra.Command{
	Use:   "token <username> <token>",
	Short: "Sign in with a pre-obtained custom-auth token",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		result, err := client.SignInWithToken(cmd.Context(), args[0], args[1])
		if err != nil {
			handleError(fmt.Errorf("token sign in failed: %w", err))
			return
		}
		printSignedIn(printer, client, result)
	},
}

// signinOTPCmd runs the email one-time-code flow interactively
var signinOTPCmd = &cobra.Command{
	Use:   "otp <username>",
	Short: "Sign in with an emailed one-time code",
	Long: `Request a one-time code for the given email address, then read the
code from standard input. A provider retry prompts for the code again.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		if err := client.BeginEmailOTP(cmd.Context(), &flows.CallOptions{Username: username}); err != nil {
			handleError(fmt.Errorf("request code failed: %w", err))
			return
		}
		if err := printer.PrintMessage(fmt.Sprintf("Code sent to %s", username)); err != nil {
			handleError(err)
			return
		}

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "Enter code: ")
			code, err := reader.ReadString('\n')
			if err != nil {
				handleError(err)
				return
			}

			result, err := client.CompleteEmailOTP(cmd.Context(), strings.TrimSpace(code))
			if errors.Is(err, flows.ErrRetryRequested) {
				fmt.Fprintln(os.Stderr, "Code rejected, try again")
				continue
			}
			if err != nil {
				handleError(fmt.Errorf("code verification failed: %w", err))
				return
			}
			printSignedIn(printer, client, result)
			return
		}
	},
}

// printSignedIn prints the result and, when available, session claims
func printSignedIn(printer *Printer, client *sdk.Client, result *flows.Result) {
	if err := printer.PrintResult(result); err != nil {
		handleError(err)
		return
	}
	if !result.IsAuthenticated {
		return
	}
	info, err := client.SessionInfo()
	if err != nil {
		printVerbose("No session info: %v", err)
		return
	}
	if err := printer.PrintSessionInfo(info); err != nil {
		handleError(err)
	}
}

func init() {
	signinPasswordCmd.Flags().String("password", "", "account password (required)")
	_ = signinPasswordCmd.MarkFlagRequired("password")

	signinPasskeyCmd.Flags().String("username-type", "email", "username type (email, phone)")
	signinPasskeyCmd.Flags().Bool("allow-fallback", false, "resolve with fallback methods instead of failing")

	signinCmd.AddCommand(signinPasswordCmd)
	signinCmd.AddCommand(signinPasskeyCmd)
	signinCmd.AddCommand(signinTokenCmd)
	signinCmd.AddCommand(signinOTPCmd)
}
