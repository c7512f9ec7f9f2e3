package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/pkg/auth"
)

const testSecret = "test-secret-key-for-unit-tests"

func newGenerator(t *testing.T, expiry time.Duration) *auth.JWTGenerator {
	t.Helper()
	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SecretKey:  testSecret,
		Issuer:     "esgss-backend",
		Audience:   []string{"esgss-api"},
		ExpiryTime: expiry,
	})
	require.NoError(t, err)
	return generator
}

func newValidator(t *testing.T) *auth.JWTValidator {
	t.Helper()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: testSecret,
		Issuer:    "esgss-backend",
		Audience:  []string{"esgss-api"},
	})
	require.NoError(t, err)
	return validator
}

func TestJWT_GenerateAndValidate(t *testing.T) {
	generator := newGenerator(t, time.Hour)
	validator := newValidator(t)

	token, err := generator.GenerateToken("user-123", "user@example.com", []string{"authenticated"})
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, []string{"authenticated"}, claims.Roles)
}

func TestJWT_BearerPrefixIsStripped(t *testing.T) {
	generator := newGenerator(t, time.Hour)
	validator := newValidator(t)
	token, err := generator.GenerateToken("user-123", "", nil)
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestJWT_ExpiredToken(t *testing.T) {
	generator := newGenerator(t, -time.Minute)
	validator := newValidator(t)
	token, err := generator.GenerateToken("user-123", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	generator := newGenerator(t, time.Hour)
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "a-different-secret"})
	require.NoError(t, err)
	token, err := generator.GenerateToken("user-123", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.Error(t, err)
}

func TestJWT_WrongIssuer(t *testing.T) {
	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SecretKey:  testSecret,
		Issuer:     "someone-else",
		Audience:   []string{"esgss-api"},
		ExpiryTime: time.Hour,
	})
	require.NoError(t, err)
	validator := newValidator(t)
	token, err := generator.GenerateToken("user-123", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func TestJWT_MissingToken(t *testing.T) {
	validator := newValidator(t)

	_, err := validator.ValidateToken("")

	assert.ErrorIs(t, err, auth.ErrMissingToken)
}

func TestJWT_ValidatorRequiresSecret(t *testing.T) {
	_, err := auth.NewJWTValidator(auth.JWTConfig{})
	assert.Error(t, err)

	_, err = auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "RS256", SecretKey: testSecret})
	assert.Error(t, err)
}

func TestUserContext_RoundTrip(t *testing.T) {
	user := &auth.UserContext{UserID: "user-123", Email: "user@example.com"}

	ctx := auth.SetUserInContext(context.Background(), user)
	got, err := auth.GetUserFromContext(ctx)

	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = auth.GetUserFromContext(context.Background())
	assert.Error(t, err)
}
