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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jeremyhahn/cognito-sdk/pkg/flows"
	"github.com/jeremyhahn/cognito-sdk/pkg/passkey"
	"github.com/jeremyhahn/cognito-sdk/pkg/sdk"
)

// Printer formats command output as text or JSON
type Printer struct {
	format string
	out    io.Writer
}

// NewPrinter creates a printer for the given output format
func NewPrinter(format string, out io.Writer) *Printer {
	return &Printer{format: format, out: out}
}

// PrintMessage prints an informational message
func (p *Printer) PrintMessage(msg string) error {
	if p.format == "json" {
		return p.printJSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.out, msg)
	return err
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(msg string) error {
	if p.format == "json" {
		return p.printJSON(map[string]any{"success": true, "message": msg})
	}
	_, err := fmt.Fprintf(p.out, "✓ %s\n", msg)
	return err
}

// PrintError prints an error
func (p *Printer) PrintError(err error) error {
	if p.format == "json" {
		return p.printJSON(map[string]string{"error": err.Error()})
	}
	_, werr := fmt.Fprintf(p.out, "Error: %v\n", err)
	return werr
}

// PrintResult prints an authentication result
func (p *Printer) PrintResult(result *flows.Result) error {
	if p.format == "json" {
		return p.printJSON(result)
	}
	if result.IsFallback {
		_, err := fmt.Fprintf(p.out, "Fallback requested; offered methods: %s\n",
			strings.Join(result.FallbackMethods, ", "))
		return err
	}
	_, err := fmt.Fprintf(p.out, "✓ Authenticated\n  ID token:      %s\n  Access token:  %s\n",
		truncate(result.IDToken), truncate(result.AccessToken))
	return err
}

// PrintPasskeys prints the registered passkeys
func (p *Printer) PrintPasskeys(keys []passkey.Passkey) error {
	if p.format == "json" {
		return p.printJSON(keys)
	}
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCREATED\tLAST USED")
	for _, k := range keys {
		lastUsed := "-"
		if !k.LastUsedAt.IsZero() {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.Type, k.CreatedAt.Format("2006-01-02 15:04"), lastUsed)
	}
	return w.Flush()
}

// PrintSessionInfo prints the current session claims
func (p *Printer) PrintSessionInfo(info *sdk.SessionInfo) error {
	if p.format == "json" {
		return p.printJSON(info)
	}
	_, err := fmt.Fprintf(p.out, "Subject:  %s\nUsername: %s\nEmail:    %s\nExpires:  %s\n",
		info.Sub, info.Username, info.Email, info.ExpiresAt.Format("2006-01-02 15:04:05"))
	return err
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens token values for terminal display
func truncate(s string) string {
	if len(s) <= 24 {
		return s
	}
	return s[:24] + "..."
}
