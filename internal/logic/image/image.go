package image

import (
	"context"
	"fmt"
	"sync"
	"time"

	v1 "github.com/aigcbox/genbatch/api/image/v1"
	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/dao"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/aigcbox/genbatch/internal/provider"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/internal/storage"
	"github.com/aigcbox/genbatch/utility/crypto"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/encoding/gbase64"
	"github.com/gogf/gf/v2/os/grpool"
	"github.com/gogf/gf/v2/os/gtime"
	"github.com/gogf/gf/v2/text/gstr"
)

type sImage struct {
	client  *provider.OpenAIImage
	storage storage.Storage
}

func init() {
	service.RegisterImage(New())
}

func New() service.IImage {
	return &sImage{
		storage: storage.Default,
	}
}

// 批量生图
func (s *sImage) Batch(ctx context.Context, params *v1.BatchReq) (res *v1.BatchRes, err error) {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "sImage Batch time: %d", gtime.TimestampMilli()-now)
	}()

	prompts, err := dao.Prompt.FindByIds(ctx, util.Unique(params.PromptIds))
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	if len(prompts) == 0 {
		return nil, errors.ERR_TASK_NOT_EXIST
	}

	jobs := make([]*model.ImageJob, 0, len(prompts))
	for _, prompt := range prompts {

		text := prompt.Text
		if prompt.Style != "" {
			text = prompt.Style + ", " + text
		}

		jobs = append(jobs, &model.ImageJob{
			Id:          prompt.Id,
			Prompt:      text,
			Style:       prompt.Style,
			RefImage:    prompt.RefImage,
			AspectRatio: prompt.AspectRatio,
		})
	}

	result, err := s.Orchestrate(ctx, jobs)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	return &v1.BatchRes{
		Results:     result.Results,
		Failed:      result.Failed,
		Diagnostics: result.Diagnostics,
	}, nil
}

// 编排一批生图任务: 密钥预检 -> 并发执行 -> 失败任务跨密钥转移
// 失败从不在已试过的密钥上重试, 成功从不重复执行
func (s *sImage) Orchestrate(ctx context.Context, jobs []*model.ImageJob) (*model.OrchestrateResult, error) {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "sImage Orchestrate time: %d", gtime.TimestampMilli()-now)
	}()

	if err := service.Key().Init(ctx, consts.PLATFORM_OPENAI_IMAGE); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	keys, err := service.Key().List(ctx, consts.PLATFORM_OPENAI_IMAGE)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	settings, err := dao.Settings.Get(ctx)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	var (
		diagnostics = make([]string, 0)
		resultMap   = make(map[string]*model.ImageResult, len(jobs))
		pending     = jobs
		anyUsable   = false
	)

	for _, key := range keys {

		if len(pending) == 0 {
			break
		}

		// 密钥自带地址时覆盖全局设置
		client := s.client
		if client == nil {
			baseUrl := settings.ApiBaseUrl
			if key.BaseUrl != "" {
				baseUrl = key.BaseUrl
			}
			client = provider.NewOpenAIImage(baseUrl)
		}

		// 提交批次前先探测密钥可达性
		if err := client.Preflight(ctx, key.ApiKey); err != nil {
			logger.Errorf(ctx, "sImage Orchestrate key: %s preflight error: %v", key.Name, err)
			diagnostics = append(diagnostics, fmt.Sprintf("key %s: preflight failed: %v", key.Name, err))
			continue
		}

		anyUsable = true

		failed := s.runBatch(ctx, client, key, pending, resultMap)

		if len(failed) > 0 {
			diagnostics = append(diagnostics, fmt.Sprintf("key %s: %d of %d jobs failed", key.Name, len(failed), len(pending)))
		}

		// 仅失败的任务转移到下一个未试过的密钥
		pending = failed
	}

	// 所有密钥都不可达: 整体失败, 逐个列出失败原因
	if !anyUsable {
		return nil, errors.NewErrorf(500, "genbatch_error", "genbatch_error", "all endpoints unreachable: %s", gstr.Join(diagnostics, "; "))
	}

	result := &model.OrchestrateResult{
		Results:     make([]*model.ImageResult, 0, len(jobs)),
		Failed:      make([]*model.ImageResult, 0),
		Diagnostics: diagnostics,
	}

	// 最终结果按输入顺序
	for _, job := range jobs {

		r := resultMap[job.Id]
		if r == nil {
			r = &model.ImageResult{JobId: job.Id, Ok: false, Error: "not attempted"}
		}

		result.Results = append(result.Results, r)

		if !r.Ok {
			result.Failed = append(result.Failed, r)
		}
	}

	return result, nil
}

// 在单个密钥下并发执行任务, 返回失败的任务
func (s *sImage) runBatch(ctx context.Context, client *provider.OpenAIImage, key *model.KeyConfig, jobs []*model.ImageJob, resultMap map[string]*model.ImageResult) []*model.ImageJob {

	concurrency := config.Cfg.Image.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, concurrency)
		failed = make([]*model.ImageJob, 0)
	)

	for _, job := range jobs {

		sem <- struct{}{}
		wg.Add(1)
		j := job

		if err := grpool.AddWithRecover(ctx, func(ctx context.Context) {

			defer func() {
				<-sem
				wg.Done()
			}()

			result := s.runJob(ctx, client, key, j)

			mu.Lock()
			resultMap[j.Id] = result
			if !result.Ok {
				failed = append(failed, j)
			}
			mu.Unlock()

		}, nil); err != nil {
			logger.Error(ctx, err)
			<-sem
			wg.Done()
		}
	}

	wg.Wait()

	return failed
}

// 执行单个生图任务, 指数退避重试, 每次重试刷新对外可见的进度记录
func (s *sImage) runJob(ctx context.Context, client *provider.OpenAIImage, key *model.KeyConfig, job *model.ImageJob) *model.ImageResult {

	start := gtime.TimestampMilli()

	s.updatePrompt(ctx, job.Id, func(prompt *entity.Prompt) {
		prompt.Status = consts.TASK_STATUS_RUNNING
		prompt.Progress = 0.1
		prompt.Error = ""
	})

	request, err := s.buildRequest(ctx, job)
	if err != nil {
		return s.jobFailed(ctx, job, start, err)
	}

	backoff := util.Backoff{
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    15 * time.Second,
		MaxAttempts: config.Cfg.Image.MaxRetries + 1,
		JitterMs:    300,
	}

	var generated *provider.GenerateResult
	attempt := 0

	err = backoff.Do(ctx, func() error {

		attempt++
		if attempt > 1 {
			s.updatePrompt(ctx, job.Id, func(prompt *entity.Prompt) {
				prompt.Progress = 0.1 + 0.1*float64(attempt)
			})
		}

		var err error
		generated, err = client.Generate(ctx, request, key.ApiKey)
		return err

	}, errors.IsRetryable)

	if err != nil {
		return s.jobFailed(ctx, job, start, err)
	}

	var bytes []byte

	if generated.Base64 != "" {
		if bytes, err = gbase64.DecodeString(generated.Base64); err != nil {
			return s.jobFailed(ctx, job, start, err)
		}
	} else {
		if bytes, err = s.storage.Download(ctx, generated.Url); err != nil {
			return s.jobFailed(ctx, job, start, err)
		}
	}

	saved, err := s.storage.Save(ctx, bytes, util.GenAssetName(crypto.Fingerprint(job.Prompt, job.RefImage), "png"))
	if err != nil {
		return s.jobFailed(ctx, job, start, err)
	}

	s.updatePrompt(ctx, job.Id, func(prompt *entity.Prompt) {
		prompt.Status = consts.TASK_STATUS_SUCCEEDED
		prompt.Progress = 1
		prompt.ImagePath = saved.LocalPath
	})

	return &model.ImageResult{
		JobId:     job.Id,
		Ok:        true,
		Url:       generated.Url,
		LocalPath: saved.LocalPath,
		ElapsedMs: gtime.TimestampMilli() - start,
	}
}

// 解析参考图: 显式 URL / data URI 直接使用, 否则按名称匹配图库
func (s *sImage) buildRequest(ctx context.Context, job *model.ImageJob) (*provider.GenerateRequest, error) {

	request := &provider.GenerateRequest{Prompt: job.Prompt}

	if job.RefImage == "" {
		return request, nil
	}

	if gstr.HasPrefix(job.RefImage, "http://") || gstr.HasPrefix(job.RefImage, "https://") || gstr.HasPrefix(job.RefImage, "data:image/") {
		request.RefImages = append(request.RefImages, job.RefImage)
		return request, nil
	}

	images, err := dao.Settings.ListImages(ctx)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	for _, image := range images {
		if gstr.Equal(image.Name, job.RefImage) {
			request.RefImages = append(request.RefImages, image.Url)
			return request, nil
		}
	}

	return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "image: reference image not found: %s", job.RefImage)
}

func (s *sImage) jobFailed(ctx context.Context, job *model.ImageJob, start int64, err error) *model.ImageResult {

	logger.Errorf(ctx, "sImage runJob job: %s error: %v", job.Id, err)

	s.updatePrompt(ctx, job.Id, func(prompt *entity.Prompt) {
		prompt.Status = consts.TASK_STATUS_FAILED
		prompt.Error = err.Error()
	})

	return &model.ImageResult{
		JobId:     job.Id,
		Ok:        false,
		Error:     err.Error(),
		ElapsedMs: gtime.TimestampMilli() - start,
	}
}

// 刷新提示词记录, 长批次运行中途可观察, 失败只记日志
func (s *sImage) updatePrompt(ctx context.Context, id string, fn func(prompt *entity.Prompt)) {
	if err := dao.Prompt.UpdateById(ctx, id, fn); err != nil {
		logger.Error(ctx, err)
	}
}
