package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry inspects a JWT-shaped token and returns its exp claim. The
// signature is deliberately not verified: the client only needs to know
// whether propagating the token is pointless, the server remains the
// authority on validity. Opaque (non-JWT) tokens report ok == false.
func TokenExpiry(token string) (expiry time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired reports whether token carries an exp claim in the past. Opaque
// tokens and JWTs without exp are never considered expired here.
func IsExpired(token string, now time.Time) bool {
	expiry, ok := TokenExpiry(token)
	return ok && expiry.Before(now)
}
