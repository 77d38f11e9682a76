package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/citizen-portal/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", "portal", 30*time.Minute).WithClock(func() time.Time { return issued })

	token, err := tm.Generate(models.User{ID: 7, Email: "citizen@example.com"})
	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, token.TokenType)
	assert.Equal(t, issued.Add(30*time.Minute), token.ExpiresAt)

	subject, err := tm.Subject(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "citizen@example.com", subject)
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", "portal", 30*time.Minute).WithClock(func() time.Time { return issued })

	token, err := tm.Generate(models.User{Email: "citizen@example.com"})
	require.NoError(t, err)

	before := tm.WithClock(func() time.Time { return issued.Add(29 * time.Minute) })
	_, err = before.Subject(token.AccessToken)
	require.NoError(t, err)

	after := tm.WithClock(func() time.Time { return issued.Add(31 * time.Minute) })
	_, err = after.Subject(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenRejections(t *testing.T) {
	tm := NewTokenManager("secret", "portal", time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    "portal",
		Subject:   "citizen@example.com",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong key", token: sign(jwt.SigningMethodHS256, []byte("other"), valid)},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte("secret"), valid)},
		{name: "none algorithm", token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{name: "wrong issuer", token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Issuer: "elsewhere", Subject: "citizen@example.com", ExpiresAt: valid.ExpiresAt,
		})},
		{name: "missing subject", token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Issuer: "portal", ExpiresAt: valid.ExpiresAt,
		})},
		{name: "missing expiry", token: sign(jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Issuer: "portal", Subject: "citizen@example.com",
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Subject(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
