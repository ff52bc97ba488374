package image

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/dao"
	_ "github.com/aigcbox/genbatch/internal/logic/key"
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/aigcbox/genbatch/internal/storage"
	"github.com/stretchr/testify/assert"
)

type fakeStorage struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakeStorage) Download(ctx context.Context, url string) ([]byte, error) {
	return []byte("image-bytes"), nil
}

func (f *fakeStorage) Save(ctx context.Context, bytes []byte, filename string) (*storage.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, filename)
	return &storage.SaveResult{LocalPath: "data/assets/" + filename, Filename: filename}, nil
}

func setupStore(t *testing.T, doc *entity.Document) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.json")

	old := config.Cfg.Store.Path
	config.Cfg.Store.Path = path
	t.Cleanup(func() { config.Cfg.Store.Path = old })

	assert.NoError(t, dao.Store.Write(context.Background(), doc))
}

// 生图接口桩: 预检校验密钥, 生成按提示词区分成败
func newImageServer(t *testing.T, goodKeys map[string]bool) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		apiKey := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		switch r.URL.Path {
		case "/v1/models":
			if !goodKeys[apiKey] {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"data":[{"id":"gpt-4o-image"}]}`))
		case "/v1/chat/completions":
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), "blocked-prompt") {
				w.Write([]byte(`{"error":{"code":"content_policy_violation","message":"prompt rejected","type":"invalid_request_error"}}`))
				return
			}
			w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"message":{"content":"生成完成 data:image/png;base64,aGVsbG8="}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func keyDoc(baseUrl string, keys ...string) *entity.Document {

	doc := &entity.Document{
		Settings: &entity.Settings{ApiBaseUrl: baseUrl},
	}

	for _, k := range keys {
		doc.Keys = append(doc.Keys, &entity.KeyEntry{Name: k, Key: k, Platform: "openai-image"})
	}

	return doc
}

func TestImage_Orchestrate(t *testing.T) {

	server := newImageServer(t, map[string]bool{"sk-1": true})
	defer server.Close()

	setupStore(t, keyDoc(server.URL, "sk-1"))

	st := &fakeStorage{}
	s := &sImage{storage: st}

	jobs := []*model.ImageJob{
		{Id: "j1", Prompt: "一只猫"},
		{Id: "j2", Prompt: "一只狗"},
	}

	result, err := s.Orchestrate(context.Background(), jobs)
	assert.NoError(t, err)

	// 结果按输入顺序, 长度与输入一致
	assert.Len(t, result.Results, 2)
	assert.Equal(t, "j1", result.Results[0].JobId)
	assert.Equal(t, "j2", result.Results[1].JobId)
	assert.True(t, result.Results[0].Ok)
	assert.True(t, result.Results[1].Ok)
	assert.Empty(t, result.Failed)

	// 指纹派生文件名, 两个任务各一份
	assert.Len(t, st.saved, 2)
	for _, name := range st.saved {
		assert.True(t, strings.HasSuffix(name, ".png"))
	}
}

func TestImage_Orchestrate_Failover(t *testing.T) {

	server := newImageServer(t, map[string]bool{"sk-good": true})
	defer server.Close()

	setupStore(t, keyDoc(server.URL, "sk-bad", "sk-good"))

	s := &sImage{storage: &fakeStorage{}}

	result, err := s.Orchestrate(context.Background(), []*model.ImageJob{{Id: "j1", Prompt: "一只猫"}})
	assert.NoError(t, err)

	// 第一个密钥预检失败, 自动切换到下一个
	assert.True(t, result.Results[0].Ok)
	assert.NotEmpty(t, result.Diagnostics)
	assert.Contains(t, result.Diagnostics[0], "sk-bad")
	assert.Contains(t, result.Diagnostics[0], "preflight")
}

func TestImage_Orchestrate_KeyBaseUrl(t *testing.T) {

	server := newImageServer(t, map[string]bool{"sk-1": true})
	defer server.Close()

	// 全局地址不可达, 密钥自带地址指向可用服务
	doc := &entity.Document{
		Settings: &entity.Settings{ApiBaseUrl: "http://127.0.0.1:1"},
		Keys: []*entity.KeyEntry{
			{Name: "sk-1", Key: "sk-1", Platform: "openai-image", BaseUrl: server.URL},
		},
	}
	setupStore(t, doc)

	s := &sImage{storage: &fakeStorage{}}

	result, err := s.Orchestrate(context.Background(), []*model.ImageJob{{Id: "j1", Prompt: "一只猫"}})
	assert.NoError(t, err)
	assert.True(t, result.Results[0].Ok)
}

func TestImage_Orchestrate_AllUnreachable(t *testing.T) {

	server := newImageServer(t, map[string]bool{})
	defer server.Close()

	setupStore(t, keyDoc(server.URL, "sk-1", "sk-2"))

	s := &sImage{storage: &fakeStorage{}}

	// 所有密钥都不可达: 整体失败, 错误含逐密钥诊断
	_, err := s.Orchestrate(context.Background(), []*model.ImageJob{{Id: "j1", Prompt: "一只猫"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sk-1")
	assert.Contains(t, err.Error(), "sk-2")
}

func TestImage_Orchestrate_PartialFailure(t *testing.T) {

	server := newImageServer(t, map[string]bool{"sk-1": true})
	defer server.Close()

	setupStore(t, keyDoc(server.URL, "sk-1"))

	oldRetries := config.Cfg.Image.MaxRetries
	config.Cfg.Image.MaxRetries = 0
	t.Cleanup(func() { config.Cfg.Image.MaxRetries = oldRetries })

	s := &sImage{storage: &fakeStorage{}}

	jobs := []*model.ImageJob{
		{Id: "j1", Prompt: "一只猫"},
		{Id: "j2", Prompt: "blocked-prompt"},
		{Id: "j3", Prompt: "一只鸟"},
	}

	result, err := s.Orchestrate(context.Background(), jobs)
	assert.NoError(t, err)

	// 部分成功: 失败任务不影响成功任务
	assert.Len(t, result.Results, 3)
	assert.True(t, result.Results[0].Ok)
	assert.False(t, result.Results[1].Ok)
	assert.Contains(t, result.Results[1].Error, "prompt rejected")
	assert.True(t, result.Results[2].Ok)

	assert.Len(t, result.Failed, 1)
	assert.Equal(t, "j2", result.Failed[0].JobId)
}

func TestImage_BuildRequest_RefResolution(t *testing.T) {

	setupStore(t, &entity.Document{
		Images: []*entity.ImageAsset{
			{Name: "吉卜力少女", Url: "https://cdn.example.com/ghibli.png"},
		},
	})

	s := &sImage{}
	ctx := context.Background()

	// 显式 URL 直接使用
	request, err := s.buildRequest(ctx, &model.ImageJob{Prompt: "一只猫", RefImage: "https://example.com/ref.png"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/ref.png"}, request.RefImages)

	// 图库名按名称解析
	request, err = s.buildRequest(ctx, &model.ImageJob{Prompt: "一只猫", RefImage: "吉卜力少女"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/ghibli.png"}, request.RefImages)

	// 解析失败为致命错误
	_, err = s.buildRequest(ctx, &model.ImageJob{Prompt: "一只猫", RefImage: "不存在的图"})
	assert.Error(t, err)

	// 无参考图
	request, err = s.buildRequest(ctx, &model.ImageJob{Prompt: "一只猫"})
	assert.NoError(t, err)
	assert.Empty(t, request.RefImages)
}
