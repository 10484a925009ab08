// Package tokenfake mints signed tokens shaped like the notes identity provider's, for
// fakes and tests.
package tokenfake

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Grant describes the token to mint.
type Grant struct {
	Subject          string
	Roles            []string
	TwoFactorEnabled bool
	TTL              time.Duration // zero mints a token without exp
}

// Minter signs tokens with a shared HMAC secret.
type Minter struct {
	secret []byte
}

func NewMinter(secret string) *Minter {
	return &Minter{secret: []byte(secret)}
}

// Mint creates a signed token for g. Roles are joined with commas, the way the
// provider emits them.
func (m *Minter) Mint(g Grant) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":          g.Subject,                  // Account username
		"roles":        strings.Join(g.Roles, ","), // Comma separated role names
		"is2faEnabled": g.TwoFactorEnabled,         // Second factor still required
		"iat":          now.Unix(),                 // Issued At
		"jti":          uuid.New().String(),        // Unique token ID
	}
	if g.TTL > 0 {
		claims["exp"] = now.Add(g.TTL).Unix()
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// MustMint is Mint for test setup; it panics on failure.
func (m *Minter) MustMint(g Grant) string {
	tok, err := m.Mint(g)
	if err != nil {
		panic(err)
	}
	return tok
}

// Verify checks the signature of a token minted by m and returns its subject.
func (m *Minter) Verify(rawToken string) (string, error) {
	parsed, err := jwtlib.Parse(rawToken, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return parsed.Claims.GetSubject()
}
