// Package middleware provides request middleware and the shared token
// verification used by the HTTP and websocket auth paths.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of JWT claims the application acts on after a
// token passes verification.
type TokenClaims struct {
	UserID uint
	JTI    string
}

var (
	ErrTokenInvalid  = errors.New("invalid or expired token")
	ErrWrongIssuer   = errors.New("invalid token issuer")
	ErrWrongAudience = errors.New("invalid token audience")
	ErrBadSubject    = errors.New("invalid subject claim")
)

// VerifyToken validates an HS256 bearer token and returns its claims.
// Issuer and audience must match exactly; the subject must be a numeric
// user id.
func VerifyToken(tokenString, secret, issuer, audience string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if iss, issOk := claims["iss"].(string); !issOk || iss != issuer {
		return nil, ErrWrongIssuer
	}
	if aud, audOk := claims["aud"].(string); !audOk || aud != audience {
		return nil, ErrWrongAudience
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrBadSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, ErrBadSubject
	}

	out := &TokenClaims{UserID: uint(userID)}
	if jti, jtiOk := claims["jti"].(string); jtiOk {
		out.JTI = jti
	}
	return out, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Returns "" when the header is absent or malformed.
func BearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
