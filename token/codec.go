package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/internal/utils"
)

// ErrMalformedToken is returned when a string is not a well-formed token envelope.
var ErrMalformedToken = apperrors.ErrMalformedToken

const (
	claimRoles            = "roles"
	claimTwoFactorEnabled = "is2faEnabled"
)

// Decode extracts the claims from a raw bearer token without contacting the server
// and without checking the signature. The same input always yields the same claims.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, apperrors.Mark(ErrMalformedToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims", ErrMalformedToken)
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, apperrors.Mark(ErrMalformedToken, err)
	}
	iat, err := mapClaims.GetIssuedAt()
	if err != nil {
		return nil, apperrors.Mark(ErrMalformedToken, err)
	}
	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return nil, apperrors.Mark(ErrMalformedToken, err)
	}

	claims := &Claims{
		Subject:          sub,
		Roles:            rolesClaim(mapClaims[claimRoles]),
		TwoFactorEnabled: boolClaim(mapClaims[claimTwoFactorEnabled]),
	}
	if iat != nil {
		claims.IssuedAt = iat.Time.UTC()
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time.UTC()
	}
	return claims, nil
}

// rolesClaim accepts "ROLE_USER,ROLE_ADMIN" as well as ["ROLE_USER","ROLE_ADMIN"].
func rolesClaim(v any) []string {
	switch roles := v.(type) {
	case string:
		return utils.SplitList(roles)
	case []any:
		return utils.ToStringSlice(roles)
	default:
		return []string{}
	}
}

func boolClaim(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// Age returns how long ago the token was issued.
func (c *Claims) Age(now time.Time) time.Duration {
	if c.IssuedAt.IsZero() {
		return 0
	}
	return now.Sub(c.IssuedAt)
}
