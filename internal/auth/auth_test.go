package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kingodev/socialchat/internal/types"
)

var testSigningKey = []byte("test-signing-key")

func TestCreateAndVerifyToken(t *testing.T) {
	ts := NewTokenService(testSigningKey)

	user := types.User{Id: 42, Username: "testuser", Role: types.RoleAdmin}
	token, err := ts.CreateToken(user, time.Hour)
	assert.NoError(t, err, "expected no error creating token")
	assert.NotEmpty(t, token, "expected a signed token string")

	decoded, err := ts.VerifyToken(token)
	assert.NoError(t, err, "expected no error verifying token")
	assert.Equal(t, user.Id, decoded.Id, "expected user id to round-trip")
	assert.Equal(t, user.Username, decoded.Username, "expected username to round-trip")
	assert.Equal(t, user.Role, decoded.Role, "expected role to round-trip")
}

func TestVerifyToken(t *testing.T) {
	ts := NewTokenService(testSigningKey)

	t.Run("expired token", func(t *testing.T) {
		token, err := ts.CreateToken(types.User{Id: 1, Username: "testuser", Role: types.RoleIntern}, -time.Minute)
		assert.NoError(t, err, "expected no error creating token")

		_, err = ts.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "expected expired token to be rejected")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewTokenService([]byte("some-other-key"))
		token, err := other.CreateToken(types.User{Id: 1, Username: "testuser", Role: types.RoleIntern}, time.Hour)
		assert.NoError(t, err, "expected no error creating token")

		_, err = ts.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "expected token signed with another key to be rejected")
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ts.VerifyToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken, "expected malformed token to be rejected")
	})

	t.Run("missing claims", func(t *testing.T) {
		// a token without username/role/id must be rejected even if validly signed
		token, err := ts.CreateToken(types.User{}, time.Hour)
		assert.NoError(t, err, "expected no error creating token")

		_, err = ts.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "expected token with empty identity to be rejected")
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "hunter2", hash, "expected hash to differ from the plaintext")

	assert.True(t, VerifyPassword(hash, "hunter2"), "expected matching password to verify")
	assert.False(t, VerifyPassword(hash, "hunter3"), "expected non-matching password to fail")
}
