package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	id, err := svc.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret", time.Hour).GenerateToken(1)
	require.NoError(t, err)

	_, err = NewJWTService("other", time.Hour).ExtractUserID(token)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken(7)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.ExtractUserID(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsOtherAlgorithm(t *testing.T) {
	claims := Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).ExtractUserID(token)
	assert.Error(t, err)
}

func TestTokenWithoutUserID(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := svc.GenerateToken(0)
	require.NoError(t, err)

	_, err = svc.ExtractUserID(token)
	assert.Error(t, err)
}
