package video

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/internal/storage"
	"github.com/stretchr/testify/assert"
)

// 内存密钥池, 引擎测试不依赖存储和 Redis
type fakeKeys struct {
	mu      sync.Mutex
	keys    []*model.KeyConfig
	index   int
	removed []string
	errored []string
}

func newFakeKeys(apiKeys ...string) *fakeKeys {
	f := &fakeKeys{}
	for _, k := range apiKeys {
		f.keys = append(f.keys, &model.KeyConfig{Name: k, ApiKey: k})
	}
	return f
}

func (f *fakeKeys) Init(ctx context.Context, platform string) error {
	return nil
}

func (f *fakeKeys) List(ctx context.Context, platform string) ([]*model.KeyConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.keys) == 0 {
		return nil, errors.ERR_ALL_KEY
	}
	return append([]*model.KeyConfig{}, f.keys...), nil
}

func (f *fakeKeys) Pick(ctx context.Context, platform string) (*model.KeyConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.keys) == 0 {
		return nil, errors.ERR_ALL_KEY
	}
	key := f.keys[f.index%len(f.keys)]
	f.index++
	return key, nil
}

func (f *fakeKeys) Peek(ctx context.Context, platform string) (*model.KeyConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.keys) == 0 {
		return nil, errors.ERR_ALL_KEY
	}
	return f.keys[f.index%len(f.keys)], nil
}

func (f *fakeKeys) RecordError(ctx context.Context, platform string, key *model.KeyConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errored = append(f.errored, key.ApiKey)
}

func (f *fakeKeys) Remove(ctx context.Context, platform string, key *model.KeyConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key.ApiKey)
	keys := f.keys[:0]
	for _, k := range f.keys {
		if k.ApiKey != key.ApiKey {
			keys = append(keys, k)
		}
	}
	f.keys = keys
}

type fakeProvider struct {
	mu       sync.Mutex
	submitFn func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error)
	queryFn  func(id, apiKey string) (*model.QueryResult, error)
	submits  map[string]int // 按提示词计数
	queries  map[string]int // 按厂商任务ID计数
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		submits: make(map[string]int),
		queries: make(map[string]int),
	}
}

func (f *fakeProvider) SubmitJob(ctx context.Context, payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
	f.mu.Lock()
	f.submits[payload.Prompt]++
	f.mu.Unlock()
	return f.submitFn(payload, apiKey)
}

func (f *fakeProvider) QueryJob(ctx context.Context, providerRequestId, apiKey string) (*model.QueryResult, error) {
	f.mu.Lock()
	f.queries[providerRequestId]++
	f.mu.Unlock()
	return f.queryFn(providerRequestId, apiKey)
}

func (f *fakeProvider) queryCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[id]
}

type fakeStorage struct {
	mu        sync.Mutex
	downloads []string
	saved     []string
	failWith  error
}

func (f *fakeStorage) Download(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.downloads = append(f.downloads, url)
	return []byte("video-bytes"), nil
}

func (f *fakeStorage) Save(ctx context.Context, bytes []byte, filename string) (*storage.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, filename)
	return &storage.SaveResult{LocalPath: "data/assets/" + filename, Filename: filename}, nil
}

func newTestEngine(p *fakeProvider, s *fakeStorage, keys *fakeKeys, concurrency int, onUpdate func(task *model.BaseTask)) *Engine {

	service.RegisterKey(keys)

	return NewEngine(EngineOptions{
		Platform:     consts.PLATFORM_KLING,
		Provider:     p,
		Storage:      s,
		Concurrency:  concurrency,
		MaxAttempts:  3,
		PollInterval: time.Millisecond,
		MaxPolls:     50,
		OnTaskUpdate: onUpdate,
	})
}

func task(id, prompt string) *model.BaseTask {
	return &model.BaseTask{Id: id, Input: &model.SubmitPayload{Prompt: prompt}}
}

func TestEngine_Run_Lifecycle(t *testing.T) {

	p := newFakeProvider()

	// t2 被厂商以致命错误拒绝, 其余任务各自轮询若干次后成功
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		if payload.Prompt == "prompt-2" {
			return nil, errors.NewError(400, "content_blocked", "prompt blocked", "genbatch_request_error")
		}
		return &model.SubmitResult{ProviderRequestId: "req-" + payload.Prompt}, nil
	}

	need := map[string]int{"req-prompt-1": 2, "req-prompt-3": 1}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		if p.queryCount(id) < need[id] {
			return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING, Progress: 0.5}, nil
		}
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/" + id + ".mp4"}, nil
	}

	st := &fakeStorage{}
	engine := newTestEngine(p, st, newFakeKeys("sk-1"), 2, nil)

	engine.Enqueue(task("t1", "prompt-1"), task("t2", "prompt-2"), task("t3", "prompt-3"))

	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Len(t, tasks, 3)

	// 快照保持入队顺序
	assert.Equal(t, "t1", tasks[0].Id)
	assert.Equal(t, "t2", tasks[1].Id)
	assert.Equal(t, "t3", tasks[2].Id)

	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, tasks[0].Status)
	assert.Equal(t, float64(1), tasks[0].Progress)
	assert.NotEmpty(t, tasks[0].LocalPath)

	// 致命失败的任务不消耗任何轮询
	assert.Equal(t, consts.TASK_STATUS_FAILED, tasks[1].Status)
	assert.Equal(t, "content_blocked", tasks[1].ErrorCode)
	assert.Zero(t, p.queryCount("req-prompt-2"))

	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, tasks[2].Status)

	// 文件名由指纹派生
	assert.ElementsMatch(t, []string{
		tasks[0].Fingerprint + ".mp4",
		tasks[2].Fingerprint + ".mp4",
	}, st.saved)
}

func TestEngine_Submit_MaxAttempts(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return nil, errors.NewError(503, 503, "Service Unavailable.", "genbatch_error")
	}

	keys := newFakeKeys("sk-1", "sk-2")
	engine := newTestEngine(p, &fakeStorage{}, keys, 1, nil)

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_FAILED, tasks[0].Status)
	assert.Equal(t, 3, tasks[0].Attempts)

	// 每次瞬时失败都计入密钥错误
	assert.Len(t, keys.errored, 3)
}

func TestEngine_Submit_KeyFailover(t *testing.T) {

	p := newFakeProvider()

	// sk-bad 致授权失败, 密钥停用并换下一个
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		if apiKey == "sk-bad" {
			return nil, errors.NewError(401, "invalid_api_key", "Incorrect API key provided.", "genbatch_request_error")
		}
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		assert.Equal(t, "sk-good", apiKey)
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/v.mp4"}, nil
	}

	keys := newFakeKeys("sk-bad", "sk-good")
	engine := newTestEngine(p, &fakeStorage{}, keys, 1, nil)

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, tasks[0].Status)
	assert.Equal(t, []string{"sk-bad"}, keys.removed)
}

func TestEngine_Poll_Timeout(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING, Progress: 0.3}, nil
	}

	service.RegisterKey(newFakeKeys("sk-1"))

	engine := NewEngine(EngineOptions{
		Platform:     consts.PLATFORM_KLING,
		Provider:     p,
		Storage:      &fakeStorage{},
		Concurrency:  1,
		MaxAttempts:  1,
		PollInterval: time.Millisecond,
		MaxPolls:     3,
	})

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_TIMEOUT, tasks[0].Status)
	assert.Equal(t, consts.ERR_CODE_TIMEOUT, tasks[0].ErrorCode)
	assert.Equal(t, 3, p.queryCount("req-1"))
}

func TestEngine_Poll_ResubmitOnProviderFailure(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}

	var failedOnce bool
	var mu sync.Mutex

	// 厂商侧任务第一次查询即死亡, 还有额度则重新提交
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if !failedOnce {
			failedOnce = true
			return &model.QueryResult{Status: consts.QUERY_STATUS_FAILED, ErrorCode: "internal", ErrorMessage: "provider died"}, nil
		}
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/v.mp4"}, nil
	}

	engine := newTestEngine(p, &fakeStorage{}, newFakeKeys("sk-1"), 1, nil)

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, tasks[0].Status)
	assert.Equal(t, 2, tasks[0].Attempts)
}

func TestEngine_StatusTransitions(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		if p.queryCount(id) < 2 {
			return &model.QueryResult{Status: consts.QUERY_STATUS_RUNNING, Progress: 0.5}, nil
		}
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/v.mp4"}, nil
	}

	var mu sync.Mutex
	var statuses []string

	engine := newTestEngine(p, &fakeStorage{}, newFakeKeys("sk-1"), 1, func(task *model.BaseTask) {
		mu.Lock()
		defer mu.Unlock()
		if len(statuses) == 0 || statuses[len(statuses)-1] != task.Status {
			statuses = append(statuses, task.Status)
		}
	})

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	// 不允许越过中间状态直达终态
	assert.Equal(t, []string{
		consts.TASK_STATUS_SUBMITTED,
		consts.TASK_STATUS_RUNNING,
		consts.TASK_STATUS_SUCCEEDED,
	}, statuses)
}

func TestEngine_EnqueueAssignsId(t *testing.T) {

	engine := newTestEngine(newFakeProvider(), &fakeStorage{}, newFakeKeys("sk-1"), 1, nil)

	engine.Enqueue(&model.BaseTask{Input: &model.SubmitPayload{Prompt: "一只猫"}})

	assert.NotEmpty(t, engine.GetTasks()[0].Id)
}

func TestEngine_Poll_ContextCanceled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		cancel()
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}

	service.RegisterKey(newFakeKeys("sk-1"))

	// 轮询间隔拉长, 取消必须先于首次查询生效
	engine := NewEngine(EngineOptions{
		Platform:     consts.PLATFORM_KLING,
		Provider:     p,
		Storage:      &fakeStorage{},
		Concurrency:  1,
		MaxAttempts:  1,
		PollInterval: time.Second,
		MaxPolls:     10,
	})

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(ctx))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_CANCELED, tasks[0].Status)
	assert.Zero(t, p.queryCount("req-1"))
}

func TestEngine_CancelPendingTask(t *testing.T) {

	p := newFakeProvider()
	engine := newTestEngine(p, &fakeStorage{}, newFakeKeys("sk-1"), 1, nil)

	engine.Enqueue(task("t1", "prompt-1"))
	engine.Cancel(context.Background(), "t1")

	// 已取消的任务不再提交
	assert.NoError(t, engine.Run(context.Background()))

	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_CANCELED, tasks[0].Status)
	assert.Empty(t, p.submits)
}

func TestEngine_TerminalStateSticky(t *testing.T) {

	engine := newTestEngine(newFakeProvider(), &fakeStorage{}, newFakeKeys("sk-1"), 1, nil)

	done := task("t1", "prompt-1")
	done.Status = consts.TASK_STATUS_SUCCEEDED
	engine.Enqueue(done)

	// 终态任务不可被取消或重新执行
	engine.Cancel(context.Background(), "t1")

	assert.NoError(t, engine.Run(context.Background()))
	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, engine.GetTasks()[0].Status)
}

func TestEngine_CallbackPanicIsolated(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/v.mp4"}, nil
	}

	engine := newTestEngine(p, &fakeStorage{}, newFakeKeys("sk-1"), 1, func(task *model.BaseTask) {
		panic("observer broke")
	})

	engine.Enqueue(task("t1", "prompt-1"))

	// 回调异常不中断引擎
	assert.NoError(t, engine.Run(context.Background()))
	assert.Equal(t, consts.TASK_STATUS_SUCCEEDED, engine.GetTasks()[0].Status)
}

func TestEngine_DownloadFailure(t *testing.T) {

	p := newFakeProvider()
	p.submitFn = func(payload *model.SubmitPayload, apiKey string) (*model.SubmitResult, error) {
		return &model.SubmitResult{ProviderRequestId: "req-1"}, nil
	}
	p.queryFn = func(id, apiKey string) (*model.QueryResult, error) {
		return &model.QueryResult{Status: consts.QUERY_STATUS_SUCCEEDED, Progress: 1, ResultUrl: "https://cdn.example.com/v.mp4"}, nil
	}

	st := &fakeStorage{failWith: errors.NewError(400, consts.ERR_CODE_DOWNLOAD_FAILED, "download rejected", "genbatch_error")}
	engine := newTestEngine(p, st, newFakeKeys("sk-1"), 1, nil)

	engine.Enqueue(task("t1", "prompt-1"))
	assert.NoError(t, engine.Run(context.Background()))

	// 生成成功但下载失败, 任务判失败并保留厂商结果地址
	tasks := engine.GetTasks()
	assert.Equal(t, consts.TASK_STATUS_FAILED, tasks[0].Status)
	assert.Equal(t, consts.ERR_CODE_DOWNLOAD_FAILED, tasks[0].ErrorCode)
	assert.Equal(t, "https://cdn.example.com/v.mp4", tasks[0].ResultUrl)
}
