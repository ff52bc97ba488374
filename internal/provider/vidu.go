package provider

import (
	"context"

	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/text/gstr"
)

const viduDefaultBaseUrl = "https://api.vidu.com"

type Vidu struct {
	baseUrl string
	backoff util.Backoff
}

func NewVidu(baseUrl string) *Vidu {

	if baseUrl == "" {
		baseUrl = viduDefaultBaseUrl
	}

	return &Vidu{
		baseUrl: baseUrl,
		backoff: util.DefaultBackoff(),
	}
}

type viduSubmitRes struct {
	TaskId  string `json:"task_id"`
	State   string `json:"state"`
	ErrCode string `json:"err_code"`
	Message string `json:"message"`
}

type viduQueryRes struct {
	TaskId    string  `json:"task_id"`
	State     string  `json:"state"`    // created, queueing, processing, success, failed
	Progress  float64 `json:"progress"` // 0-100
	ErrCode   string  `json:"err_code"`
	Message   string  `json:"message"`
	Creations []struct {
		Id  string `json:"id"`
		Url string `json:"url"`
	} `json:"creations"`
}

func (p *Vidu) SubmitJob(ctx context.Context, payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {

	// 图生视频必须携带参考图
	if payload.ImageUrl == "" {
		return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "vidu: at least one reference image is required")
	}

	if !isWellFormedRef(payload.ImageUrl) {
		return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "vidu: malformed image url: %s", payload.ImageUrl)
	}

	data := g.Map{
		"model":  "vidu2.0",
		"images": []string{payload.ImageUrl},
		"prompt": payload.Prompt,
	}

	if payload.AspectRatio != "" {
		data["aspect_ratio"] = payload.AspectRatio
	}

	if payload.Seed > 0 {
		data["seed"] = payload.Seed
	}

	if payload.Watermark {
		data["watermark"] = true
	}

	if payload.CallbackUrl != "" {
		data["callback_url"] = payload.CallbackUrl
	}

	if payload.TranslationMode != "" {
		data["translation_mode"] = payload.TranslationMode
	}

	for k, v := range payload.Extra {
		data[k] = v
	}

	res := new(viduSubmitRes)

	err := p.backoff.Do(ctx, func() error {

		statusCode, err := util.HttpPostJsonStatus(ctx, p.baseUrl+"/ent/v2/img2video", p.header(apiKey), data, res)
		if err != nil {
			return err
		}

		if statusCode != 200 {
			return errors.NewErrorf(statusCode, consts.ERR_CODE_SUBMIT_FAILED, "genbatch_error", "vidu: http %d: %s", statusCode, res.Message)
		}

		if res.ErrCode != "" {
			return errors.NewErrorf(400, res.ErrCode, "genbatch_request_error", "vidu: %s", res.Message)
		}

		if res.TaskId == "" {
			return errors.NewErrorf(500, consts.ERR_CODE_PARSE_FAILED, "genbatch_error", "vidu: empty task_id in response")
		}

		return nil
	}, errors.IsRetryable)

	if err != nil {
		logger.Errorf(ctx, "Vidu SubmitJob error: %v", err)
		return nil, err
	}

	return &model.SubmitResult{ProviderRequestId: res.TaskId}, nil
}

func (p *Vidu) QueryJob(ctx context.Context, providerRequestId, apiKey string) (*model.QueryResult, error) {

	res := new(viduQueryRes)

	statusCode, err := util.HttpGetStatus(ctx, p.baseUrl+"/ent/v2/tasks/"+providerRequestId+"/creations", p.header(apiKey), nil, res)
	if err != nil {
		logger.Errorf(ctx, "Vidu QueryJob error: %v", err)
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING}, nil
	}

	if statusCode == 404 {
		return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED}, nil
	}

	if statusCode >= 500 {
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING}, nil
	}

	switch gstr.ToLower(res.State) {
	case "created", "queueing":
		return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED, Progress: normalizeProgress(res.Progress)}, nil
	case "processing":
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING, Progress: normalizeProgress(res.Progress)}, nil
	case "success":

		result := &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1}

		if len(res.Creations) > 0 {
			result.ResultUrl = res.Creations[0].Url
		}

		return result, nil
	case "failed":

		errCode := res.ErrCode
		if errCode == "" {
			errCode = consts.ERR_CODE_GENERATE_FAILED
		}

		return &model.QueryResult{
			Status:       consts.QUERY_STATUS_FAILED,
			ErrorCode:    errCode,
			ErrorMessage: res.Message,
		}, nil
	}

	return &model.QueryResult{Status: consts.QUERY_STATUS_QUEUED}, nil
}

func (p *Vidu) header(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Token " + apiKey,
	}
}

// 厂商进度恒为 0-100, 归一化到 [0,1]
func normalizeProgress(progress float64) float64 {

	progress = progress / 100

	if progress < 0 {
		return 0
	}

	if progress > 1 {
		return 1
	}

	return progress
}
