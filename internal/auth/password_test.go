// ABOUTME: Tests for bcrypt password hashing
// ABOUTME: Covers round trip, mismatch, and hash uniqueness

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse battery staple"))
}

func TestCheckPassword_Mismatch(t *testing.T) {
	hash, err := HashPassword("right")
	require.NoError(t, err)

	err = CheckPassword(hash, "wrong")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "hashes should carry distinct salts")
}
