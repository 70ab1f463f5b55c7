package identity_test

import (
	"context"
	"testing"

	"ansel/internal/lib/identity"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("guest by default", func(t *testing.T) {
		id := identity.FromContext(context.Background())
		assert.True(t, id.IsGuest())
		assert.False(t, id.IsUnlocked(1))
	})

	t.Run("stored identity", func(t *testing.T) {
		ctx := identity.WithIdentity(context.Background(), identity.Identity{
			User:     "alice",
			Age:      30,
			Groups:   []string{"family"},
			Unlocked: map[int64]bool{7: true},
		})

		id := identity.FromContext(ctx)
		assert.Equal(t, "alice", id.User)
		assert.Equal(t, 30, id.Age)
		assert.Equal(t, []string{"family"}, id.Groups)
		assert.True(t, id.IsUnlocked(7))
		assert.False(t, id.IsUnlocked(8))
	})

	t.Run("with user", func(t *testing.T) {
		id := identity.FromContext(identity.WithUser(context.Background(), "bob", "g1", "g2"))
		assert.Equal(t, "bob", id.User)
		assert.Equal(t, []string{"g1", "g2"}, id.Groups)
	})
}
