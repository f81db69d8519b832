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

	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/sdk"
	"github.com/spf13/cobra"
)

// passkeyCmd groups passkey management commands
var passkeyCmd = &cobra.Command{
	Use:   "passkey",
	Short: "Manage passkeys",
	Long: `Create, list, rename, and delete passkeys. Management commands sign
in with a password first to obtain the session the backend requires.`,
}

// passkeyCreateCmd registers a passkey through the custom-auth flow
var passkeyCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a passkey and sign in with it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		displayName, _ := cmd.Flags().GetString("display-name")
		client, err := cfg.CreateClient(cmd.Context())
		if err != nil {
			handleError(err)
			return
		}

		result, err := client.CreatePasskey(cmd.Context(), &flows.CallOptions{
			Username:    username,
			DisplayName: displayName,
			Abort:       flows.NewAbortController(),
		})
		if err != nil {
			handleError(fmt.Errorf("create passkey failed: %w", err))
			return
		}
		printSignedIn(printer, client, result)
	},
}

// passkeyAddCmd adds a passkey to an existing account
var passkeyAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a passkey to an existing account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		displayName, _ := cmd.Flags().GetString("display-name")
		client, err := signedInClient(cmd, username)
		if err != nil {
			handleError(err)
			return
		}

		added, err := client.AddPasskey(cmd.Context(), &flows.CallOptions{
			Username:    username,
			DisplayName: displayName,
		})
		if err != nil {
			handleError(fmt.Errorf("add passkey failed: %w", err))
			return
		}

		name := displayName
		if added != nil {
			name = added.Name
		}
		if err := printer.PrintSuccess(fmt.Sprintf("Passkey added: %s", name)); err != nil {
			handleError(err)
		}
	},
}

// passkeyListCmd lists registered passkeys
var passkeyListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List registered passkeys",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		client, err := signedInClient(cmd, args[0])
		if err != nil {
			handleError(err)
			return
		}

		keys, err := client.ListPasskeys(cmd.Context())
		if err != nil {
			handleError(fmt.Errorf("list passkeys failed: %w", err))
			return
		}
		if len(keys) == 0 {
			if err := printer.PrintMessage("No passkeys registered"); err != nil {
				handleError(err)
			}
			return
		}
		if err := printer.PrintPasskeys(keys); err != nil {
			handleError(err)
		}
	},
}

// passkeyRenameCmd renames a passkey
var passkeyRenameCmd = &cobra.Command{
	Use:   "rename <username> <passkey-id> <name>",
	Short: "Rename a passkey",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		client, err := signedInClient(cmd, args[0])
		if err != nil {
			handleError(err)
			return
		}

		if err := client.RenamePasskey(cmd.Context(), args[1], args[2]); err != nil {
			handleError(fmt.Errorf("rename passkey failed: %w", err))
			return
		}
		if err := printer.PrintSuccess("Passkey renamed"); err != nil {
			handleError(err)
		}
	},
}

// passkeyDeleteCmd deletes a passkey
var passkeyDeleteCmd = &cobra.Command{
	Use:   "delete <username> <passkey-id>",
	Short: "Delete a passkey",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		client, err := signedInClient(cmd, args[0])
		if err != nil {
			handleError(err)
			return
		}

		if err := client.DeletePasskey(cmd.Context(), args[1]); err != nil {
			handleError(fmt.Errorf("delete passkey failed: %w", err))
			return
		}
		if err := printer.PrintSuccess("Passkey deleted"); err != nil {
			handleError(err)
		}
	},
}

// signedInClient builds a client and signs in with the --password flag,
// which management commands require for their bearer token.
func signedInClient(cmd *cobra.Command, username string) (*sdk.Client, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		return nil, fmt.Errorf("--password is required for passkey management")
	}

	cfg := getConfig()
	client, err := cfg.CreateClient(cmd.Context())
	if err != nil {
		return nil, err
	}

	printVerbose("Signing in %s for a management session", username)
	if _, err := client.SignInWithPassword(cmd.Context(), username, password); err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	return client, nil
}

func init() {
	passkeyCreateCmd.Flags().String("display-name", "", "human-readable credential name")
	passkeyAddCmd.Flags().String("display-name", "", "human-readable credential name")

	for _, c := range []*cobra.Command{passkeyAddCmd, passkeyListCmd, passkeyRenameCmd, passkeyDeleteCmd} {
		c.Flags().String("password", "", "account password for the management session")
	}

	passkeyCmd.AddCommand(passkeyCreateCmd)
	passkeyCmd.AddCommand(passkeyAddCmd)
	passkeyCmd.AddCommand(passkeyListCmd)
	passkeyCmd.AddCommand(passkeyRenameCmd)
	passkeyCmd.AddCommand(passkeyDeleteCmd)
}
