package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
		TokenTTL:      30 * time.Minute,
		Clock:         clock,
	})
}

func TestIssueAndValidateToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	token, expiresIn, err := issuer.IssueToken(context.Background(), "user-1", "areej")
	require.NoError(t, err)
	require.Equal(t, int64(1800), expiresIn)

	subject, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", subject)
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	issuer := newTestIssuer(time.Now)
	_, _, err := issuer.IssueToken(context.Background(), "", "areej")
	require.ErrorIs(t, err, errMissingSubjectClaim)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	token, _, err := issuer.IssueToken(context.Background(), "user-1", "areej")
	require.NoError(t, err)

	later := newTestIssuer(func() time.Time { return now.Add(time.Hour) })
	_, err = later.ValidateToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	token, _, err := issuer.IssueToken(context.Background(), "user-1", "areej")
	require.NoError(t, err)

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
		Clock:         func() time.Time { return now },
	})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestTokensCarryUniqueIDs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(func() time.Time { return now })

	first, _, err := issuer.IssueToken(context.Background(), "user-1", "areej")
	require.NoError(t, err)
	second, _, err := issuer.IssueToken(context.Background(), "user-1", "areej")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
