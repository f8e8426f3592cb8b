package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	ID     int    `json:"id"`
	Pseudo string `json:"pseudo"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 session tokens. There is no
// revocation list: a token stays valid until it expires (if ttl > 0).
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *JWTManager) Issue(c Claims) (string, error) {
	now := m.now()
	rc := jwt.RegisteredClaims{
		Subject:  strconv.Itoa(c.UserID),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		ID:               c.UserID,
		Pseudo:           c.Pseudo,
		Admin:            c.Admin,
		RegisteredClaims: rc,
	})
	s, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (m *JWTManager) Verify(_ context.Context, raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrMissingToken
	}

	tc := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, tc, func(t *jwt.Token) (interface{}, error) {
		// HMAC only
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || tc.ID < 1 {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: tc.ID, Pseudo: tc.Pseudo, Admin: tc.Admin}, nil
}

// BearerToken extracts the token from an Authorization header value.
// An absent header yields ErrMissingToken, a malformed one ErrInvalidToken.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "Bearer") {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// IsMissing reports whether err means no credential was presented at all.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingToken)
}
