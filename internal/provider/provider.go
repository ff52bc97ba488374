package provider

import (
	"context"

	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
)

// 生成任务提交/查询能力, 每个厂商一个实现
type Provider interface {
	// 提交任务, 厂商拒绝载荷时返回致命错误, 不重试
	SubmitJob(ctx context.Context, payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error)
	// 查询任务, 瞬时错误归一化为 queued/running 状态而非报错
	QueryJob(ctx context.Context, providerRequestId, apiKey string) (*model.QueryResult, error)
}

// 按平台构造
func New(platform, baseUrl string) (Provider, error) {

	switch platform {
	case consts.PLATFORM_KLING:
		return NewKling(baseUrl), nil
	case consts.PLATFORM_VIDU:
		return NewVidu(baseUrl), nil
	}

	return nil, errors.NewErrorf(400, "invalid_parameter", "genbatch_request_error", "unsupported platform: %s", platform)
}
