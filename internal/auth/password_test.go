package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/auth"
	"github.com/tripdesk/backend/internal/domain"
)

func TestHashPassword_CheckPassword_RoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, auth.CheckPassword(hash, "correct horse battery staple"))
}

func TestCheckPassword_Mismatch(t *testing.T) {
	hash, err := auth.HashPassword("right password")
	require.NoError(t, err)

	err = auth.CheckPassword(hash, "wrong password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotAuthorized))
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	err := auth.CheckPassword("not-a-bcrypt-hash", "anything")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotAuthorized))
}
