package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaramel/rentdesk/internal/models"
)

func TestNewRandomToken(t *testing.T) {
	a, err := NewRandomToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := NewRandomToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret-pass"))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"

	signed, err := IssueAccessToken(secret, 42, models.RoleRealtor, 15*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(secret, signed)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, models.RoleRealtor, claims.Role)

	_, err = ParseAccessToken("other-secret", signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(secret, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpiry(t *testing.T) {
	secret := "test-secret"

	signed, err := IssueAccessToken(secret, 42, models.RoleOwner, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(secret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
