package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/harvest-market/internal/core/domain"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret")

	for _, who := range []domain.Identity{domain.Farmer{ID: "f-1"}, domain.Grocer{ID: "g-1"}} {
		token, err := tokens.Issue(who, time.Hour)
		require.NoError(t, err)

		got, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, who, got)
	}
}

func TestParse_Rejects(t *testing.T) {
	tokens := NewTokens("test-secret")
	valid, err := tokens.Issue(domain.Grocer{ID: "g-1"}, time.Hour)
	require.NoError(t, err)

	expired, err := tokens.Issue(domain.Grocer{ID: "g-1"}, -time.Minute)
	require.NoError(t, err)

	otherSecret, err := NewTokens("other").Issue(domain.Grocer{ID: "g-1"}, time.Hour)
	require.NoError(t, err)

	adminClaims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	admin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: domain.RoleGrocer}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             domain.RoleGrocer,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "g-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "tampered", token: valid + "x", wantErr: ErrInvalidToken},
		{name: "expired", token: expired, wantErr: ErrInvalidToken},
		{name: "wrong secret", token: otherSecret, wantErr: ErrInvalidToken},
		{name: "alg none", token: unsigned, wantErr: ErrInvalidToken},
		{name: "unknown role", token: admin, wantErr: ErrUnknownRole},
		{name: "missing subject", token: noSubject, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			who, err := tokens.Parse(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, who)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
	assert.Empty(t, BearerToken(""))
}
