package token

import (
	"time"
)

// Claims is the advisory view of a session token. It is decoded without verifying the
// signature, so it drives UI branching only; the identity provider makes every
// authorization decision.
type Claims struct {
	Subject          string    `json:"sub"`          // Account identifier (the username)
	Roles            []string  `json:"roles"`        // Roles granted to the account
	IssuedAt         time.Time `json:"iat"`          // When the token was issued
	ExpiresAt        time.Time `json:"exp"`          // Zero when the token carries no exp claim
	TwoFactorEnabled bool      `json:"is2faEnabled"` // A second factor must be confirmed before the token is usable
}

// Expired reports whether the token should no longer be used. Tokens without an exp
// claim are considered expired maxAge after they were issued; maxAge <= 0 disables that.
func (c *Claims) Expired(now time.Time, maxAge time.Duration) bool {
	if !c.ExpiresAt.IsZero() {
		return !now.Before(c.ExpiresAt)
	}
	if maxAge > 0 && !c.IssuedAt.IsZero() {
		return now.After(c.IssuedAt.Add(maxAge))
	}
	return false
}

// HasRole reports whether role is among the token's roles.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
