package cache

import (
	"context"
	"time"

	"github.com/gogf/gf/v2/container/gvar"
	"github.com/gogf/gf/v2/os/gcache"
)

type Cache struct {
	cache *gcache.Cache
}

func New(lruCap ...int) *Cache {
	return &Cache{
		cache: gcache.New(lruCap...),
	}
}

func (c *Cache) Set(ctx context.Context, key any, value any, duration time.Duration) error {
	return c.cache.Set(ctx, key, value, duration)
}

func (c *Cache) Get(ctx context.Context, key any) (*gvar.Var, error) {
	return c.cache.Get(ctx, key)
}

func (c *Cache) GetVal(ctx context.Context, key any) any {
	reply, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	return reply.Val()
}

func (c *Cache) Contains(ctx context.Context, key any) (bool, error) {
	return c.cache.Contains(ctx, key)
}

func (c *Cache) Remove(ctx context.Context, keys ...any) (*gvar.Var, error) {
	return c.cache.Remove(ctx, keys...)
}

func (c *Cache) Clear(ctx context.Context) error {
	return c.cache.Clear(ctx)
}
