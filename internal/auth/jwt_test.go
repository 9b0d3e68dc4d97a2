package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyReturnsIdentity(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, identityClaims{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth-uid-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "auth-uid-123", identity.AuthUID)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, "ada@example.com", identity.Email)
}

func TestVerifyAllowsMissingProfileFields(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "auth-uid-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "auth-uid-123", identity.AuthUID)
	assert.Empty(t, identity.Name)
	assert.Empty(t, identity.Email)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.RegisteredClaims{Subject: "auth-uid-123"})

	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "auth-uid-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "auth-uid-123"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(unsigned)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	_, err := verifier.Verify("not-a-token")
	assert.Error(t, err)
}
