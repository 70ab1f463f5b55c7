// Package memcache is an in-process gallery cache for single node setups.
package memcache

import (
	"context"
	"time"

	"ansel/internal/storage"

	"github.com/patrickmn/go-cache"
)

type entry struct {
	value  []byte
	stored time.Time
}

type Cache struct {
	c   *cache.Cache
	now func() time.Time
}

func New(defaultLifetime time.Duration) *Cache {
	cleanup := defaultLifetime
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	return &Cache{
		c:   cache.New(defaultLifetime, cleanup),
		now: time.Now,
	}
}

func (m *Cache) Get(_ context.Context, key string, lifetime time.Duration) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, storage.ErrCacheMiss
	}

	e := v.(entry)
	if lifetime > 0 && m.now().Sub(e.stored) > lifetime {
		return nil, storage.ErrCacheMiss
	}

	return e.value, nil
}

func (m *Cache) Set(_ context.Context, key string, value []byte) error {
	m.c.SetDefault(key, entry{value: append([]byte(nil), value...), stored: m.now()})
	return nil
}

func (m *Cache) Expire(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
