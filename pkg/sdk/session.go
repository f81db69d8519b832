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
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionInfo summarizes the signed-in user from the id token claims.
type SessionInfo struct {
	// Sub is the provider-assigned user identifier.
	Sub string

	// Username is the pool username (cognito:username claim, or the
	// email claim when the pool uses email sign-in).
	Username string

	// Email is the verified email address, when present.
	Email string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the id token is past its expiry.
func (s *SessionInfo) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SessionInfo extracts claims from the stored id token. The token is
// decoded without signature verification: the claims are informational
// on the client and the provider verified them at issuance.
func (c *Client) SessionInfo() (*SessionInfo, error) {
	tokens := c.Tokens()
	if tokens == nil || tokens.IDToken == "" {
		return nil, ErrNoIDToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.IDToken, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	info := &SessionInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Sub = sub
	}
	if username, ok := claims["cognito:username"].(string); ok {
		info.Username = username
	}
	if email, ok := claims["email"].(string); ok {
		info.Email = email
		if info.Username == "" {
			info.Username = email
		}
	}
	if issued, err := claims.GetIssuedAt(); err == nil && issued != nil {
		info.IssuedAt = issued.Time
	}
	if expires, err := claims.GetExpirationTime(); err == nil && expires != nil {
		info.ExpiresAt = expires.Time
	}
	return info, nil
}
