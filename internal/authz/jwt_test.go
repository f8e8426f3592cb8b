package authz

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 0)

	token, err := m.Issue(Claims{UserID: 42, Pseudo: "alice", Admin: true})
	require.NoError(t, err)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Pseudo: "alice", Admin: true}, claims)
}

func TestJWTManager_NoExpiryByDefault(t *testing.T) {
	m := NewJWTManager("secret", 0)
	token, err := m.Issue(Claims{UserID: 1, Pseudo: "a"})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	_, err = m.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.Issue(Claims{UserID: 1, Pseudo: "a"})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Rejections(t *testing.T) {
	m := NewJWTManager("secret", 0)
	other := NewJWTManager("other-secret", 0)
	foreign, err := other.Issue(Claims{UserID: 1, Pseudo: "a"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 1, "pseudo": "a", "admin": true})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"blank", "   ", ErrMissingToken},
		{"garbage", "not.a.jwt", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	_, err = BearerToken("")
	assert.True(t, IsMissing(err))

	_, err = BearerToken("Bearer ")
	assert.True(t, IsMissing(err))

	_, err = BearerToken("Basic dXNlcjpwYXNz")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_IsSelf(t *testing.T) {
	c := Claims{UserID: 3}
	assert.True(t, c.IsSelf(3))
	assert.False(t, c.IsSelf(4))
}
