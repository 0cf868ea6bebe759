package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	tok, err := svc.Issue(domain.Principal{UserID: "u-1", Role: domain.RoleTraveler})
	require.NoError(t, err)

	for _, raw := range []string{tok, "Bearer " + tok} {
		p, err := svc.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "u-1", p.UserID)
		assert.Equal(t, domain.RoleTraveler, p.Role)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	other := NewTokenService("other", time.Hour)

	foreign, err := other.Issue(domain.Principal{UserID: "u-1", Role: domain.RoleShipper})
	require.NoError(t, err)

	_, err = svc.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Validate("not-a-jwt")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := svc.Issue(domain.Principal{UserID: "u-1", Role: domain.RoleShipper})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_UnknownRole(t *testing.T) {
	claims := Claims{
		Role:             "pilot",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenService("secret", time.Hour).Issue(domain.Principal{UserID: "u-1", Role: "pilot"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
