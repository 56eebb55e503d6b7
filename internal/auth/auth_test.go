package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtrack/internal/core"
)

const secret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong horse"), core.ErrUnauthorized)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "x"), core.ErrUnauthorized)
}

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Minute, nil)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	ti, err := NewTokenIssuer(secret, 30*time.Minute, fixedClock(now))
	require.NoError(t, err)

	user := uuid.New()
	token, err := ti.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	got, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestTokenRejections(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	ti, err := NewTokenIssuer(secret, 30*time.Minute, fixedClock(now))
	require.NoError(t, err)
	user := uuid.New()
	valid, err := ti.Issue(user)
	require.NoError(t, err)

	later, err := NewTokenIssuer(secret, 30*time.Minute, fixedClock(now.Add(31*time.Minute)))
	require.NoError(t, err)
	other, err := NewTokenIssuer(strings.Repeat("z", 32), 30*time.Minute, fixedClock(now))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: user.String(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{"expired", later, valid},
		{"wrong secret", other, valid},
		{"wrong algorithm", ti, hs512},
		{"missing expiry", ti, noExpiry},
		{"non-uuid subject", ti, badSubject},
		{"malformed", ti, "abc.def"},
		{"empty", ti, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Parse(tt.token)
			assert.ErrorIs(t, err, core.ErrUnauthorized)
		})
	}
}

func TestUserContext(t *testing.T) {
	_, ok := UserFrom(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := UserFrom(WithUser(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = UserFrom(WithUser(context.Background(), uuid.Nil))
	assert.False(t, ok)
}
