package jwt_test

import (
	"testing"
	"time"

	"ansel/internal/lib/identity"
	"ansel/internal/lib/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenAndParse(t *testing.T) {
	const secret = "test-secret"

	token, err := jwt.NewToken(identity.Identity{User: "alice", Age: 21, Groups: []string{"family", "friends"}}, secret, time.Hour)
	require.NoError(t, err)

	id, err := jwt.Parse(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.User)
	assert.Equal(t, 21, id.Age)
	assert.Equal(t, []string{"family", "friends"}, id.Groups)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := jwt.Parse(token, "other")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := jwt.NewToken(identity.Identity{User: "alice"}, secret, -time.Minute)
		require.NoError(t, err)

		_, err = jwt.Parse(expired, secret)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("missing uid", func(t *testing.T) {
		anon, err := jwt.NewToken(identity.Identity{}, secret, time.Hour)
		require.NoError(t, err)

		_, err = jwt.Parse(anon, secret)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
