package authz

import (
	"context"
	"errors"
)

var (
	// ErrMissingToken: no bearer credential was presented.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken: a credential was presented but failed verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the identity facts bound into a session token.
type Claims struct {
	UserID int    `json:"id"`
	Pseudo string `json:"pseudo"`
	Admin  bool   `json:"admin"`
}

// IsSelf reports whether targetID is the identity carried by the claims.
func (c Claims) IsSelf(targetID int) bool {
	return c.UserID == targetID
}

type ClaimsIssuer interface {
	Issue(claims Claims) (string, error)
}

// ClaimsVerifier resolves a raw token into claims. Implementations return
// ErrMissingToken or ErrInvalidToken (possibly wrapped).
type ClaimsVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
