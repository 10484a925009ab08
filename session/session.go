package session

import (
	"time"

	"github.com/jrsteele09/notes-auth-client/token"
)

// Identity is the decoded view of the session token that display code works from.
type Identity struct {
	Username         string
	Roles            []string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	TwoFactorEnabled bool
}

// IdentityFromClaims derives an Identity from decoded token claims.
func IdentityFromClaims(c *token.Claims) Identity {
	roles := make([]string, len(c.Roles))
	copy(roles, c.Roles)
	return Identity{
		Username:         c.Subject,
		Roles:            roles,
		IssuedAt:         c.IssuedAt,
		ExpiresAt:        c.ExpiresAt,
		TwoFactorEnabled: c.TwoFactorEnabled,
	}
}

// Session binds a session token to the identity decoded from it.
type Session struct {
	Token    string
	Identity Identity
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Identity.Roles = append([]string(nil), s.Identity.Roles...)
	return &c
}

// userSummary is what gets persisted under UserKey.
type userSummary struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}
