package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// expiryLeeway avoids pushing a request through with a token that will
// expire before the backend sees it.
const expiryLeeway = 30 * time.Second

// tokenExpired reports whether the bearer token carries an exp claim
// in the past. Signature verification is the backend's job; this is a
// local fast-fail only. Opaque (non-JWT) tokens return an error and are
// sent as-is.
func tokenExpired(token string, now time.Time) (bool, error) {
	if token == "" {
		return false, nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false, fmt.Errorf("not a parseable JWT: %w", err)
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return claims.ExpiresAt.Time.Before(now.Add(expiryLeeway)), nil
}

// OwnerFromToken extracts the user id from the token's sub claim, the
// same id the backend's row-level authorization scopes every table by.
func OwnerFromToken(token string) (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("token has no subject claim")
	}

	owner, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a uuid: %w", err)
	}
	return owner, nil
}
