// Package auth verifies identity tokens presented by clients.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/richarrd92/hobbymatch/internal/domain"
)

// identityClaims carries the profile fields the identity provider embeds
// alongside the registered claims.
type identityClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed identity tokens. The subject claim is
// the stable auth UID of the user.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token string, checking the signature and
// standard claims such as expiration.
func (v *JWTVerifier) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &domain.Identity{
		AuthUID: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}, nil
}
