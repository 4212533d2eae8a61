package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/eip-site/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewManager(
		config.AdminConfig{Username: "admin", PasswordHash: string(hash)},
		config.JWTConfig{Secret: "test-secret", Issuer: "eip-site", TTL: time.Hour},
	)
}

func TestLoginAndParse(t *testing.T) {
	m := newTestManager(t)

	token, exp, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m := newTestManager(t)

	_, _, err := m.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = m.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("admin")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewManager(config.AdminConfig{}, config.JWTConfig{Secret: "other", Issuer: "eip-site"})
	foreign, _, err := other.Issue("admin")
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")))
}
