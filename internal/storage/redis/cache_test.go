package redisapp_test

import (
	"context"
	"testing"
	"time"

	"ansel/internal/storage"
	redisapp "ansel/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(lifetime time.Duration) (*redisapp.Cache, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return redisapp.NewCache(&redisapp.Client{Client: db}, lifetime), mock
}

func TestCache_Set(t *testing.T) {
	ctx := context.Background()
	cache, mock := setupCache(time.Hour)

	t.Run("success", func(t *testing.T) {
		mock.ExpectSet("Ansel_Gallery1", []byte(`{"id":1}`), time.Hour).SetVal("OK")
		err := cache.Set(ctx, "Ansel_Gallery1", []byte(`{"id":1}`))
		assert.NoError(t, err)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSet("Ansel_Gallery1", []byte(`{"id":1}`), time.Hour).SetErr(redis.ErrClosed)
		err := cache.Set(ctx, "Ansel_Gallery1", []byte(`{"id":1}`))
		assert.ErrorIs(t, err, redis.ErrClosed)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		cache, mock := setupCache(time.Hour)
		mock.ExpectGet("Ansel_Gallery1").SetVal(`{"id":1}`)
		mock.ExpectTTL("Ansel_Gallery1").SetVal(50 * time.Minute)

		data, err := cache.Get(ctx, "Ansel_Gallery1", 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, `{"id":1}`, string(data))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("older than lifetime", func(t *testing.T) {
		cache, mock := setupCache(time.Hour)
		mock.ExpectGet("Ansel_Gallery1").SetVal(`{"id":1}`)
		mock.ExpectTTL("Ansel_Gallery1").SetVal(10 * time.Minute)

		_, err := cache.Get(ctx, "Ansel_Gallery1", 30*time.Minute)
		assert.ErrorIs(t, err, storage.ErrCacheMiss)
	})

	t.Run("zero lifetime accepts any age", func(t *testing.T) {
		cache, mock := setupCache(time.Hour)
		mock.ExpectGet("Ansel_Gallery1").SetVal(`{"id":1}`)
		mock.ExpectTTL("Ansel_Gallery1").SetVal(time.Second)

		_, err := cache.Get(ctx, "Ansel_Gallery1", 0)
		assert.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		cache, mock := setupCache(time.Hour)
		mock.ExpectGet("Ansel_Gallery2").RedisNil()
		mock.ExpectTTL("Ansel_Gallery2").SetVal(-2)

		_, err := cache.Get(ctx, "Ansel_Gallery2", time.Hour)
		assert.ErrorIs(t, err, storage.ErrCacheMiss)
	})
}

func TestCache_Expire(t *testing.T) {
	ctx := context.Background()
	cache, mock := setupCache(time.Hour)

	mock.ExpectDel("Ansel_OtherGalleriesalice").SetVal(1)
	assert.NoError(t, cache.Expire(ctx, "Ansel_OtherGalleriesalice"))

	mock.ExpectDel("Ansel_OtherGalleriesalice").SetErr(redis.ErrClosed)
	assert.ErrorIs(t, cache.Expire(ctx, "Ansel_OtherGalleriesalice"), redis.ErrClosed)
}
