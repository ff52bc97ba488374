package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/text/gstr"
)

const klingDefaultBaseUrl = "https://api.klingai.com"

type Kling struct {
	baseUrl string
	backoff util.Backoff
	paths   sync.Map // 任务ID -> 提交路径, 查询接口按提交能力区分
}

func NewKling(baseUrl string) *Kling {

	if baseUrl == "" {
		baseUrl = klingDefaultBaseUrl
	}

	return &Kling{
		baseUrl: baseUrl,
		backoff: util.DefaultBackoff(),
	}
}

type klingSubmitRes struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestId string `json:"request_id"`
	Data      struct {
		TaskId     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"data"`
}

type klingQueryRes struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskId        string `json:"task_id"`
		TaskStatus    string `json:"task_status"`     // submitted, processing, succeed, failed
		TaskStatusMsg string `json:"task_status_msg"` // 失败原因
		TaskResult    struct {
			Videos []struct {
				Id       string `json:"id"`
				Url      string `json:"url"`
				Duration string `json:"duration"`
			} `json:"videos"`
		} `json:"task_result"`
	} `json:"data"`
}

func (p *Kling) SubmitJob(ctx context.Context, payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {

	// 本地校验, 不发起网络调用
	if gstr.Trim(payload.Prompt) == "" {
		return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "kling: prompt is required")
	}

	if payload.ImageUrl != "" && !isWellFormedRef(payload.ImageUrl) {
		return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "kling: malformed image url: %s", payload.ImageUrl)
	}

	path := "/v1/videos/text2video"
	data := g.Map{
		"model_name": "kling-v1",
		"prompt":     payload.Prompt,
	}

	if payload.ImageUrl != "" {
		path = "/v1/videos/image2video"
		data["image"] = payload.ImageUrl
	}

	if payload.AspectRatio != "" {
		data["aspect_ratio"] = payload.AspectRatio
	}

	if payload.Seed > 0 {
		data["seed"] = payload.Seed
	}

	if payload.CallbackUrl != "" {
		data["callback_url"] = payload.CallbackUrl
	}

	for k, v := range payload.Extra {
		data[k] = v
	}

	res := new(klingSubmitRes)

	err := p.backoff.Do(ctx, func() error {
		return p.post(ctx, path, apiKey, data, res)
	}, errors.IsRetryable)

	if err != nil {
		logger.Errorf(ctx, "Kling SubmitJob error: %v", err)
		return nil, err
	}

	p.paths.Store(res.Data.TaskId, path)

	return &model.SubmitResult{ProviderRequestId: res.Data.TaskId}, nil
}

func (p *Kling) QueryJob(ctx context.Context, providerRequestId, apiKey string) (*model.QueryResult, error) {

	res := new(klingQueryRes)

	// 非本实例提交的任务默认按文生视频查询
	path := "/v1/videos/text2video"
	if v, ok := p.paths.Load(providerRequestId); ok {
		path = v.(string)
	}

	statusCode, err := util.HttpGetStatus(ctx, p.baseUrl+path+"/"+providerRequestId, p.header(apiKey), nil, res)
	if err != nil {
		// 瞬时错误不上抛, 交由外层轮询继续
		logger.Errorf(ctx, "Kling QueryJob error: %v", err)
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING}, nil
	}

	// 任务尚未可见, 继续排队等待
	if statusCode == 404 {
		return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED}, nil
	}

	if statusCode >= 500 {
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING}, nil
	}

	if res.Code != 0 {
		return &model.QueryResult{
			Status:       consts.QUERY_STATUS_FAILED,
			ErrorCode:    fmt.Sprintf("%d", res.Code),
			ErrorMessage: res.Message,
		}, nil
	}

	switch res.Data.TaskStatus {
	case "submitted":
		return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED}, nil
	case "processing":
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING, Progress: 0.5}, nil
	case "succeed":

		result := &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1}

		if len(res.Data.TaskResult.Videos) > 0 {
			result.ResultUrl = res.Data.TaskResult.Videos[0].Url
		}

		return result, nil
	case "failed":
		return &model.QueryResult{
			Status:       consts.QUERY_STATUS_FAILED,
			ErrorCode:    consts.ERR_CODE_GENERATE_FAILED,
			ErrorMessage: res.Data.TaskStatusMsg,
		}, nil
	}

	return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED}, nil
}

func (p *Kling) post(ctx context.Context, path, apiKey string, data g.Map, res *klingSubmitRes) error {

	statusCode, err := util.HttpPostJsonStatus(ctx, p.baseUrl+path, p.header(apiKey), data, res)
	if err != nil {
		return err
	}

	if statusCode != 200 {
		return errors.NewErrorf(statusCode, consts.ERR_CODE_SUBMIT_FAILED, "genbatch_error", "kling: http %d: %s", statusCode, res.Message)
	}

	// code 非 0 为厂商业务错误, 致命
	if res.Code != 0 {
		return errors.NewErrorf(400, res.Code, "genbatch_request_error", "kling: %s", res.Message)
	}

	if res.Data.TaskId == "" {
		return errors.NewErrorf(500, consts.ERR_CODE_PARSE_FAILED, "genbatch_error", "kling: empty task_id in response")
	}

	return nil
}

func (p *Kling) header(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
	}
}

func isWellFormedRef(ref string) bool {
	return gstr.HasPrefix(ref, "http://") || gstr.HasPrefix(ref, "https://") || gstr.HasPrefix(ref, "data:image/")
}
