package video

import (
	"context"
	"sync"
	"time"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/provider"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/internal/storage"
	"github.com/aigcbox/genbatch/utility/crypto"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/os/gfile"
	"github.com/gogf/gf/v2/os/grpool"
	"github.com/gogf/gf/v2/os/gtime"
)

// 引擎配置
type EngineOptions struct {
	Platform     string
	Provider     provider.Provider
	Storage      storage.Storage
	Concurrency  int           // 提交并发数
	MaxAttempts  int           // 单任务最大提交次数
	BatchDelay   time.Duration // 批次间延迟, 严格限流的厂商需要
	PollInterval time.Duration // 轮询间隔
	MaxPolls     int           // 轮询次数上限
	OnTaskUpdate func(task *model.BaseTask)
}

// 任务状态机引擎: 入队 -> 提交 -> 轮询 -> 下载 -> 终态
type Engine struct {
	opts EngineOptions

	mu       sync.Mutex
	tasks    []*model.BaseTask // 按入队顺序
	taskKeys map[string]string // 任务提交时使用的密钥, 轮询沿用
}

func NewEngine(opts EngineOptions) *Engine {

	if opts.Concurrency <= 0 {
		opts.Concurrency = config.Cfg.Engine.Concurrency
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.Cfg.Engine.MaxAttempts
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Duration(config.Cfg.Engine.PollIntervalMs) * time.Millisecond
	}

	if opts.MaxPolls <= 0 {
		opts.MaxPolls = config.Cfg.Engine.MaxPolls
	}

	if opts.Storage == nil {
		opts.Storage = storage.Default
	}

	return &Engine{
		opts:     opts,
		taskKeys: make(map[string]string),
	}
}

// 入队, 不启动任何工作
func (e *Engine) Enqueue(tasks ...*model.BaseTask) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, task := range tasks {

		if task.Id == "" {
			task.Id = util.GenerateId()
		}

		if task.Status == "" {
			task.Status = consts.TASK_STATUS_PENDING
		}

		if task.MaxAttempts <= 0 {
			task.MaxAttempts = e.opts.MaxAttempts
		}

		if task.Fingerprint == "" && task.Input != nil {
			task.Fingerprint = crypto.Fingerprint(task.Input.Prompt, task.Input.ImageUrl)
		}

		if task.CreatedAt == 0 {
			task.CreatedAt = gtime.TimestampMilli()
		}
		task.UpdatedAt = task.CreatedAt

		e.tasks = append(e.tasks, task)
	}
}

// 最终/当前快照, 保持入队顺序
func (e *Engine) GetTasks() []*model.BaseTask {
	e.mu.Lock()
	defer e.mu.Unlock()

	tasks := make([]*model.BaseTask, len(e.tasks))
	copy(tasks, e.tasks)

	return tasks
}

// 取消未到终态的任务
func (e *Engine) Cancel(ctx context.Context, id string) {
	e.mu.Lock()
	tasks := e.tasks
	e.mu.Unlock()

	for _, task := range tasks {
		if task.Id == id && !task.IsTerminal() {
			e.transition(ctx, task, consts.TASK_STATUS_CANCELED)
		}
	}
}

// 按并发上限分批提交, 批间延迟, 然后轮询到终态
func (e *Engine) Run(ctx context.Context) error {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "Engine Run time: %d", gtime.TimestampMilli()-now)
	}()

	e.mu.Lock()
	tasks := make([]*model.BaseTask, len(e.tasks))
	copy(tasks, e.tasks)
	e.mu.Unlock()

	for i := 0; i < len(tasks); i += e.opts.Concurrency {

		end := i + e.opts.Concurrency
		if end > len(tasks) {
			end = len(tasks)
		}

		var wg sync.WaitGroup

		for _, task := range tasks[i:end] {

			if task.Status != consts.TASK_STATUS_PENDING {
				continue
			}

			wg.Add(1)
			t := task

			if err := grpool.AddWithRecover(ctx, func(ctx context.Context) {
				defer wg.Done()
				e.submit(ctx, t)
			}, nil); err != nil {
				logger.Error(ctx, err)
				wg.Done()
			}
		}

		wg.Wait()

		if e.opts.BatchDelay > 0 && end < len(tasks) {
			select {
			case <-time.After(e.opts.BatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.opts.Concurrency)

	for _, task := range tasks {

		if task.Status != consts.TASK_STATUS_SUBMITTED {
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		t := task

		if err := grpool.AddWithRecover(ctx, func(ctx context.Context) {
			defer func() {
				<-sem
				wg.Done()
			}()
			e.poll(ctx, t)
		}, nil); err != nil {
			logger.Error(ctx, err)
			<-sem
			wg.Done()
		}
	}

	wg.Wait()

	return nil
}

// 提交单个任务, 瞬时失败换密钥重试, 致命失败立即终态
func (e *Engine) submit(ctx context.Context, task *model.BaseTask) {

	for task.Attempts < task.MaxAttempts {

		key, err := service.Key().Pick(ctx, e.opts.Platform)
		if err != nil {
			logger.Error(ctx, err)
			e.fail(ctx, task, consts.ERR_CODE_SUBMIT_FAILED, err.Error())
			return
		}

		task.Attempts++

		result, err := e.opts.Provider.SubmitJob(ctx, task.Input, key.ApiKey)
		if err == nil {

			e.mu.Lock()
			e.taskKeys[task.Id] = key.ApiKey
			e.mu.Unlock()

			task.ProviderRequestId = result.ProviderRequestId
			e.transition(ctx, task, consts.TASK_STATUS_SUBMITTED)

			return
		}

		logger.Errorf(ctx, "Engine submit task: %s, attempt: %d, error: %v", task.Id, task.Attempts, err)

		isRetry, isDisabled := errors.IsNeedRetry(err)

		if isDisabled {
			service.Key().Remove(ctx, e.opts.Platform, key)
		} else {
			service.Key().RecordError(ctx, e.opts.Platform, key)
		}

		if !isRetry {
			e.fail(ctx, task, errCodeOf(err), err.Error())
			return
		}
	}

	e.fail(ctx, task, consts.ERR_CODE_SUBMIT_FAILED, "max attempts exceeded")
}

// 轮询单个任务到终态, 同一任务的轮询严格串行
func (e *Engine) poll(ctx context.Context, task *model.BaseTask) {

	e.mu.Lock()
	apiKey := e.taskKeys[task.Id]
	e.mu.Unlock()

	for polls := 0; polls < e.opts.MaxPolls; polls++ {

		select {
		case <-time.After(e.opts.PollInterval):
		case <-ctx.Done():
			e.transition(ctx, task, consts.TASK_STATUS_CANCELED)
			return
		}

		if task.IsTerminal() {
			return
		}

		result, err := e.opts.Provider.QueryJob(ctx, task.ProviderRequestId, apiKey)
		if err != nil {
			// 查询错误按瞬时处理, 继续轮询
			logger.Error(ctx, err)
			continue
		}

		if result.Progress > task.Progress {
			task.Progress = result.Progress
			task.UpdatedAt = gtime.TimestampMilli()
			e.notify(ctx, task)
		}

		switch result.Status {

		case consts.QUERY_STATUS_SUCCEEDED:
			task.ResultUrl = result.ResultUrl
			e.download(ctx, task)
			return

		case consts.QUERY_STATUS_FAILED:

			// 厂商侧任务死亡: 还有额度就重新提交
			if task.Attempts < task.MaxAttempts {

				logger.Infof(ctx, "Engine poll task: %s failed at provider, resubmitting, attempts: %d", task.Id, task.Attempts)

				task.ProviderRequestId = ""
				e.transition(ctx, task, consts.TASK_STATUS_PENDING)

				e.submit(ctx, task)
				if task.Status != consts.TASK_STATUS_SUBMITTED {
					return
				}

				e.mu.Lock()
				apiKey = e.taskKeys[task.Id]
				e.mu.Unlock()

				polls = -1

				continue
			}

			e.fail(ctx, task, result.ErrorCode, result.ErrorMessage)
			return

		case consts.QUERY_STATUS_RUNNING:
			if task.Status != consts.TASK_STATUS_RUNNING {
				e.transition(ctx, task, consts.TASK_STATUS_RUNNING)
			}
		}
	}

	task.ErrorCode = consts.ERR_CODE_TIMEOUT
	task.ErrorMessage = "poll budget exceeded"
	e.transition(ctx, task, consts.TASK_STATUS_TIMEOUT)
}

// 下载生成结果并落盘, 文件名由指纹派生, 重复执行不产生重复文件
func (e *Engine) download(ctx context.Context, task *model.BaseTask) {

	var bytes []byte

	backoff := util.Backoff{BaseDelay: time.Second, Factor: 2, MaxDelay: 10 * time.Second, MaxAttempts: 2, JitterMs: 200}

	err := backoff.Do(ctx, func() error {
		var err error
		bytes, err = e.opts.Storage.Download(ctx, task.ResultUrl)
		return err
	}, errors.IsRetryable)

	if err != nil {
		logger.Error(ctx, err)
		e.fail(ctx, task, consts.ERR_CODE_DOWNLOAD_FAILED, err.Error())
		return
	}

	ext := gfile.ExtName(task.ResultUrl)
	if ext == "" {
		ext = "mp4"
	}

	// 无指纹时退化为时间戳加随机串命名
	filename := util.GenAssetName(task.Fingerprint, ext)
	if task.Fingerprint == "" {
		filename = util.GenFileName(ext)
	}

	saved, err := e.opts.Storage.Save(ctx, bytes, filename)
	if err != nil {
		logger.Error(ctx, err)
		e.fail(ctx, task, consts.ERR_CODE_DOWNLOAD_FAILED, err.Error())
		return
	}

	task.LocalPath = saved.LocalPath
	task.ActualFilename = saved.Filename
	task.Progress = 1
	e.transition(ctx, task, consts.TASK_STATUS_SUCCEEDED)
}

func (e *Engine) fail(ctx context.Context, task *model.BaseTask, code, message string) {
	task.ErrorCode = code
	task.ErrorMessage = message
	e.transition(ctx, task, consts.TASK_STATUS_FAILED)
}

// 状态迁移, 终态不可回退, 每次迁移触发回调
func (e *Engine) transition(ctx context.Context, task *model.BaseTask, status string) {

	if task.IsTerminal() {
		return
	}

	task.Status = status
	task.UpdatedAt = gtime.TimestampMilli()

	e.notify(ctx, task)
}

// 回调不允许中断引擎, 异常只记日志
func (e *Engine) notify(ctx context.Context, task *model.BaseTask) {

	if e.opts.OnTaskUpdate == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Engine onTaskUpdate panic: %v", r)
		}
	}()

	e.opts.OnTaskUpdate(task)
}

func errCodeOf(err error) string {

	apiError := &errors.ApiError{}
	if errors.As(err, &apiError) {
		if code, ok := apiError.Code.(string); ok {
			return code
		}
	}

	return consts.ERR_CODE_SUBMIT_FAILED
}
