package memcache

import (
	"context"
	"testing"
	"time"

	"ansel/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	ctx := context.Background()
	c := New(time.Hour)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "Ansel_Gallery1", 0)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "Ansel_Gallery1", []byte("one")))

	data, err := c.Get(ctx, "Ansel_Gallery1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "Ansel_Gallery1", time.Minute)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	_, err = c.Get(ctx, "Ansel_Gallery1", 0)
	assert.NoError(t, err)

	require.NoError(t, c.Expire(ctx, "Ansel_Gallery1"))
	_, err = c.Get(ctx, "Ansel_Gallery1", 0)
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}
