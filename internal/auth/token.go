package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parcelroute/internal/domain"
)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	ErrMissingToken = fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
)

// Claims are the JWT claims carried by a bearer token. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the principal.
func (s *TokenService) Issue(p domain.Principal) (string, error) {
	if p.UserID == "" || !p.Role.Valid() {
		return "", fmt.Errorf("%w: principal needs a user id and a known role", domain.ErrValidation)
	}

	now := s.now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses a token, with or without the "Bearer " prefix, and returns
// the principal it identifies.
func (s *TokenService) Validate(tokenString string) (domain.Principal, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return domain.Principal{}, ErrMissingToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrExpiredToken
		}
		return domain.Principal{}, ErrInvalidToken
	}
	if !token.Valid {
		return domain.Principal{}, ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return domain.Principal{}, ErrInvalidToken
	}

	return domain.Principal{UserID: claims.Subject, Role: role}, nil
}
