package redis

import (
	"context"
	"fmt"
	"time"

	_ "github.com/gogf/gf/contrib/nosql/redis/v2"
	"github.com/gogf/gf/v2/container/gvar"
	"github.com/gogf/gf/v2/database/gredis"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/text/gstr"
	"github.com/redis/go-redis/v9"
)

var (
	UniversalClient redis.UniversalClient
	Client          *redis.Client
	master          *gredis.Redis
)

// 初始化 Redis 连接, 未配置时降级为空实现, 计数类功能不可用
func Init(ctx context.Context) error {

	config, ok := gredis.GetConfig()
	if !ok || config.Address == "" {
		return nil
	}

	opts := &redis.UniversalOptions{
		Addrs:           gstr.SplitAndTrim(config.Address, ","),
		Username:        config.User,
		Password:        config.Pass,
		DB:              config.Db,
		MaxRetries:      -1,
		PoolSize:        config.MaxActive,
		MinIdleConns:    config.MinIdle,
		MaxIdleConns:    config.MaxIdle,
		ConnMaxLifetime: config.MaxConnLifetime,
		ConnMaxIdleTime: config.IdleTimeout,
		PoolTimeout:     config.WaitTimeout,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		TLSConfig:       config.TLSConfig,
	}

	if len(opts.Addrs) > 1 {
		UniversalClient = redis.NewClusterClient(opts.Cluster())
		Client = redis.NewClient(opts.Simple())
	} else {
		UniversalClient = redis.NewClient(opts.Simple())
		Client = redis.NewClient(opts.Simple())
	}

	master = g.Redis()

	if cmd := Client.Ping(ctx); cmd.Err() != nil {
		return fmt.Errorf("redis ping: %w", cmd.Err())
	}

	return nil
}

func Enabled() bool {
	return master != nil
}

func Incr(ctx context.Context, key string) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.Incr(ctx, key)
}

func Get(ctx context.Context, key string) (*gvar.Var, error) {
	if master == nil {
		return nil, nil
	}
	return master.Get(ctx, key)
}

func Set(ctx context.Context, key string, value any, option ...gredis.SetOption) (*gvar.Var, error) {
	if master == nil {
		return nil, nil
	}
	return master.Set(ctx, key, value, option...)
}

func Del(ctx context.Context, keys ...string) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.Del(ctx, keys...)
}

func HSet(ctx context.Context, key string, fields map[string]any) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.HSet(ctx, key, fields)
}

func HGetInt(ctx context.Context, key, field string) (int, error) {
	if master == nil {
		return 0, nil
	}
	reply, err := master.HGet(ctx, key, field)
	if err != nil {
		return 0, err
	}
	return reply.Int(), nil
}

func HIncrBy(ctx context.Context, key, field string, increment int64) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.HIncrBy(ctx, key, field, increment)
}

func Expire(ctx context.Context, key string, seconds int64, option ...gredis.ExpireOption) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.Expire(ctx, key, seconds, option...)
}

func ExpireAt(ctx context.Context, key string, time time.Time, option ...gredis.ExpireOption) (int64, error) {
	if master == nil {
		return 0, nil
	}
	return master.ExpireAt(ctx, key, time, option...)
}
