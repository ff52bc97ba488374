package video

import (
	"context"
	"time"

	v1 "github.com/aigcbox/genbatch/api/video/v1"
	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/dao"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/aigcbox/genbatch/internal/provider"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/os/gctx"
	"github.com/gogf/gf/v2/os/gtime"
)

type sVideo struct{}

func init() {
	service.RegisterVideo(New())
}

func New() service.IVideo {
	return &sVideo{}
}

// 批量提交视频生成任务并跟踪到终态
func (s *sVideo) Batch(ctx context.Context, params *v1.BatchReq) (res *v1.BatchRes, err error) {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "sVideo Batch time: %d", gtime.TimestampMilli()-now)
	}()

	settings, err := dao.Settings.Get(ctx)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	platform := params.Platform
	if platform == "" {
		platform = settings.DefaultPlatform
	}
	if platform == "" {
		platform = consts.PLATFORM_KLING
	}

	// 无可用密钥是配置错误, 任何任务提交前整体失败
	if err = service.Key().Init(ctx, platform); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	taskIds := util.Unique(params.TaskIds)

	records, err := dao.TaskVideo.FindByIds(ctx, taskIds)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	if len(records) == 0 {
		return nil, errors.ERR_TASK_NOT_EXIST
	}

	// 密钥自带地址时覆盖全局设置
	baseUrl := settings.ApiBaseUrl
	if key, err := service.Key().Peek(ctx, platform); err == nil && key.BaseUrl != "" {
		baseUrl = key.BaseUrl
	}

	p, err := provider.New(platform, baseUrl)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	engine := NewEngine(EngineOptions{
		Platform:   platform,
		Provider:   p,
		BatchDelay: time.Duration(config.Cfg.Engine.BatchDelayMs) * time.Millisecond,
		OnTaskUpdate: func(task *model.BaseTask) {
			// 每次状态变化落盘, 中途崩溃不丢失已完成任务的进度
			if err := dao.TaskVideo.Save(gctx.NeverDone(ctx), applyTask(task, platform)); err != nil {
				logger.Error(ctx, err)
			}
		},
	})

	// 按请求顺序入队
	recordMap := util.ToMap(records, func(t *entity.VideoTask) string { return t.Id })

	tasks := make([]*model.BaseTask, 0, len(records))
	for _, id := range taskIds {
		if record, ok := recordMap[id]; ok {
			tasks = append(tasks, toBaseTask(record))
		}
	}

	engine.Enqueue(tasks...)

	if err = engine.Run(ctx); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	return &v1.BatchRes{Tasks: engine.GetTasks()}, nil
}

func (s *sVideo) Tasks(ctx context.Context, params *v1.TasksReq) (res *v1.TasksRes, err error) {

	tasks, err := dao.TaskVideo.List(ctx)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	return &v1.TasksRes{Tasks: tasks}, nil
}

// 存储记录 -> 引擎任务
func toBaseTask(record *entity.VideoTask) *model.BaseTask {

	return &model.BaseTask{
		Id:                record.Id,
		Status:            consts.TASK_STATUS_PENDING,
		ProviderRequestId: record.ProviderRequestId,
		Fingerprint:       record.Fingerprint,
		CreatedAt:         record.CreatedAt,
		Input: &model.SubmitPayload{
			Prompt:      record.Prompt,
			ImageUrl:    record.ImageUrl,
			AspectRatio: record.AspectRatio,
		},
	}
}

// 引擎任务 -> 存储记录
func applyTask(task *model.BaseTask, platform string) *entity.VideoTask {

	record := &entity.VideoTask{
		Id:                task.Id,
		Platform:          platform,
		Status:            task.Status,
		Progress:          task.Progress,
		ProviderRequestId: task.ProviderRequestId,
		Fingerprint:       task.Fingerprint,
		VideoUrl:          task.ResultUrl,
		FileName:          task.ActualFilename,
		FilePath:          task.LocalPath,
		ErrorCode:         task.ErrorCode,
		ErrorMessage:      task.ErrorMessage,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}

	if task.Input != nil {
		record.Prompt = task.Input.Prompt
		record.ImageUrl = task.Input.ImageUrl
		record.AspectRatio = task.Input.AspectRatio
	}

	return record
}
