package util

import (
	"context"
	"time"

	"github.com/gogf/gf/v2/util/grand"
)

// 指数退避配置
type Backoff struct {
	BaseDelay   time.Duration // 基础延迟
	Factor      float64       // 增长因子
	MaxDelay    time.Duration // 延迟上限
	MaxAttempts int           // 最大尝试次数, 含首次
	JitterMs    int           // 抖动毫秒数
}

func DefaultBackoff() Backoff {
	return Backoff{
		BaseDelay:   500 * time.Millisecond,
		Factor:      2,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 3,
		JitterMs:    200,
	}
}

// 第 attempt 次失败后的等待时长, attempt 从 1 开始
func (b Backoff) Delay(attempt int) time.Duration {

	delay := b.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * b.Factor)
		if delay >= b.MaxDelay {
			delay = b.MaxDelay
			break
		}
	}

	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}

	if b.JitterMs > 0 {
		delay += time.Duration(grand.N(0, b.JitterMs)) * time.Millisecond
	}

	return delay
}

// 重试执行 fn, isRetryable 判定为 false 的错误立即返回
func (b Backoff) Do(ctx context.Context, fn func() error, isRetryable func(error) bool) error {

	maxAttempts := b.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-time.After(b.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
