package key

import (
	"context"
	"fmt"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/dao"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/utility/cache"
	"github.com/aigcbox/genbatch/utility/lb"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/redis"
	"github.com/gogf/gf/v2/os/gctx"
	"github.com/gogf/gf/v2/os/genv"
	"github.com/gogf/gf/v2/os/grpool"
	"github.com/gogf/gf/v2/os/gtime"
	"github.com/gogf/gf/v2/text/gstr"
)

type sKey struct {
	keysCache           *cache.Cache // [平台][]密钥列表
	keysRoundRobinCache *cache.Cache // [平台]密钥下标索引
}

func init() {
	service.RegisterKey(New())
}

func New() service.IKey {
	return &sKey{
		keysCache:           cache.New(),
		keysRoundRobinCache: cache.New(),
	}
}

// 初始化平台密钥池, 按优先级合并环境变量/设置/密钥库, 零候选为配置错误
func (s *sKey) Init(ctx context.Context, platform string) error {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "sKey Init time: %d", gtime.TimestampMilli()-now)
	}()

	candidates := make([]*model.KeyConfig, 0)

	for _, name := range config.Cfg.Keys.EnvNames {
		if value := genv.Get(name).String(); value != "" {
			candidates = append(candidates, &model.KeyConfig{
				Name:     name,
				ApiKey:   value,
				Platform: platform,
			})
		}
	}

	if settings, err := dao.Settings.Get(ctx); err != nil {
		logger.Error(ctx, err)
	} else if settings.ApiKey != "" && matchPlatform(settings.ApiPlatform, platform) {
		candidates = append(candidates, &model.KeyConfig{
			Name:     "settings",
			ApiKey:   settings.ApiKey,
			Platform: platform,
			BaseUrl:  settings.ApiBaseUrl,
		})
	}

	if entries, err := dao.Key.List(ctx); err != nil {
		logger.Error(ctx, err)
	} else {
		for _, entry := range entries {

			if entry.Status == 2 || !matchPlatform(entry.Platform, platform) {
				continue
			}

			candidates = append(candidates, &model.KeyConfig{
				Name:     entry.Name,
				ApiKey:   entry.Key,
				Platform: entry.Platform,
				BaseUrl:  entry.BaseUrl,
				LastUsed: entry.LastUsed,
			})
		}
	}

	// 去重, 高优先级来源保留
	hash := make(map[string]struct{}, len(candidates))
	keys := make([]*model.KeyConfig, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := hash[candidate.ApiKey]; ok {
			continue
		}
		hash[candidate.ApiKey] = struct{}{}
		keys = append(keys, candidate)
	}

	if len(keys) == 0 {
		return errors.ERR_NO_AVAILABLE_KEY
	}

	if err := s.keysCache.Set(ctx, platform, keys, 0); err != nil {
		logger.Error(ctx, err)
		return err
	}

	if err := s.keysRoundRobinCache.Set(ctx, platform, lb.NewRoundRobin(), 0); err != nil {
		logger.Error(ctx, err)
		return err
	}

	logger.Infof(ctx, "sKey Init platform: %s, keys: %d", platform, len(keys))

	return nil
}

func (s *sKey) List(ctx context.Context, platform string) ([]*model.KeyConfig, error) {

	keys, _, err := s.pool(ctx, platform)
	if err != nil {
		return nil, err
	}

	items := make([]*model.KeyConfig, len(keys))
	copy(items, keys)

	return items, nil
}

func (s *sKey) Pick(ctx context.Context, platform string) (*model.KeyConfig, error) {

	keys, roundRobin, err := s.pool(ctx, platform)
	if err != nil {
		return nil, err
	}

	key := keys[roundRobin.Index(len(keys))]

	key.LastUsed = gtime.TimestampMilli()

	// 回写最后使用时间, 失败只记日志
	if err := grpool.AddWithRecover(gctx.NeverDone(ctx), func(ctx context.Context) {
		if err := dao.Key.UpdateLastUsed(ctx, key.Name, key.LastUsed); err != nil {
			logger.Error(ctx, err)
		}
	}, nil); err != nil {
		logger.Error(ctx, err)
	}

	return key, nil
}

func (s *sKey) Peek(ctx context.Context, platform string) (*model.KeyConfig, error) {

	keys, roundRobin, err := s.pool(ctx, platform)
	if err != nil {
		return nil, err
	}

	return keys[roundRobin.Current(len(keys))], nil
}

// 记录密钥错误次数, 达到阈值后本轮内移除该密钥
func (s *sKey) RecordError(ctx context.Context, platform string, key *model.KeyConfig) {

	reply, err := redis.HIncrBy(ctx, fmt.Sprintf(consts.ERROR_KEY, platform), key.ApiKey, 1)
	if err != nil {
		logger.Error(ctx, err)
	}

	if _, err = redis.ExpireAt(ctx, fmt.Sprintf(consts.ERROR_KEY, platform), gtime.Now().EndOfDay().Time); err != nil {
		logger.Error(ctx, err)
	}

	threshold := config.Cfg.Keys.ErrorThreshold
	if threshold <= 0 {
		threshold = 10
	}

	if reply >= int64(threshold) {
		s.Remove(ctx, platform, key)
	}
}

func (s *sKey) Remove(ctx context.Context, platform string, key *model.KeyConfig) {

	keysValue := s.keysCache.GetVal(ctx, platform)
	if keysValue == nil {
		return
	}

	keys := keysValue.([]*model.KeyConfig)

	newKeys := make([]*model.KeyConfig, 0, len(keys))
	for _, k := range keys {
		if k.ApiKey != key.ApiKey {
			newKeys = append(newKeys, k)
		}
	}

	if err := s.keysCache.Set(ctx, platform, newKeys, 0); err != nil {
		logger.Error(ctx, err)
	}

	logger.Infof(ctx, "sKey Remove platform: %s, key: %s, remaining: %d", platform, key.Name, len(newKeys))
}

func (s *sKey) pool(ctx context.Context, platform string) ([]*model.KeyConfig, *lb.RoundRobin, error) {

	keysValue := s.keysCache.GetVal(ctx, platform)
	roundRobinValue := s.keysRoundRobinCache.GetVal(ctx, platform)

	if keysValue == nil || roundRobinValue == nil {
		return nil, nil, errors.ERR_NO_AVAILABLE_KEY
	}

	keys := keysValue.([]*model.KeyConfig)
	if len(keys) == 0 {
		return nil, nil, errors.ERR_ALL_KEY
	}

	return keys, roundRobinValue.(*lb.RoundRobin), nil
}

// 平台匹配: 忽略大小写的相等或包含
func matchPlatform(value, platform string) bool {

	if value == "" || platform == "" {
		return true
	}

	value, platform = gstr.ToLower(value), gstr.ToLower(platform)

	return value == platform || gstr.Contains(value, platform) || gstr.Contains(platform, value)
}
