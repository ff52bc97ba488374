package config

import (
	"time"

	"github.com/gogf/gf/v2/encoding/gjson"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcfg"
	"github.com/gogf/gf/v2/os/gctx"
	"github.com/gogf/gf/v2/os/gfsnotify"
)

var Cfg = defaultConfig()

func init() {

	ctx := gctx.New()

	file, _ := gcfg.NewAdapterFile()
	path, _ := file.GetFilePath()

	if path == "" {
		return
	}

	if data, err := gcfg.Instance().Data(ctx); err == nil {
		if err = gjson.Unmarshal(gjson.MustEncode(data), Cfg); err != nil {
			g.Log().Errorf(ctx, "解析配置文件 %s 错误: %v", path, err)
		}
	}

	// 监听配置文件变化, 热加载
	_, _ = gfsnotify.Add(path, func(event *gfsnotify.Event) {
		ctx := gctx.New()
		if data, err := gcfg.Instance().Data(ctx); err != nil {
			g.Log().Errorf(ctx, "热加载 获取配置文件 %s 数据错误: %v", path, err)
		} else {
			if err = gjson.Unmarshal(gjson.MustEncode(data), Cfg); err != nil {
				g.Log().Errorf(ctx, "热加载 解析配置文件 %s 错误: %v", path, err)
			} else {
				g.Log().Infof(ctx, "热加载 配置文件 %s 成功", path)
			}
		}
	})
}

// 配置信息
type Config struct {
	ApiServerAddress string  `json:"api_server_address"`
	Http             Http    `json:"http"`
	Store            Store   `json:"store"`
	Storage          Storage `json:"storage"`
	Keys             Keys    `json:"keys"`
	Engine           Engine  `json:"engine"`
	Image            Image   `json:"image"`
}

type Http struct {
	Timeout   time.Duration `json:"timeout"` // 单位: 秒
	ProxyOpen bool          `json:"proxy_open"`
	ProxyUrl  string        `json:"proxy_url"`
}

type Store struct {
	Path string `json:"path"` // 应用状态文档路径
}

type Storage struct {
	OutputDir string `json:"output_dir"` // 生成结果落盘目录
}

type Keys struct {
	EnvNames       []string `json:"env_names"`       // 候选密钥环境变量名
	ErrorThreshold int      `json:"error_threshold"` // 密钥错误次数阈值, 达到后本轮内移除
}

type Engine struct {
	Concurrency    int `json:"concurrency"`      // 提交并发数
	MaxAttempts    int `json:"max_attempts"`     // 单任务最大提交次数
	BatchDelayMs   int `json:"batch_delay_ms"`   // 批次间延迟
	PollIntervalMs int `json:"poll_interval_ms"` // 轮询间隔
	MaxPolls       int `json:"max_polls"`        // 轮询次数上限
}

type Image struct {
	Concurrency int `json:"concurrency"` // 生图并发数
	MaxRetries  int `json:"max_retries"` // 单任务重试次数
}

func defaultConfig() *Config {
	return &Config{
		ApiServerAddress: ":8080",
		Http: Http{
			Timeout: 60,
		},
		Store: Store{
			Path: "data/app.json",
		},
		Storage: Storage{
			OutputDir: "data/assets",
		},
		Keys: Keys{
			EnvNames:       []string{"GENBATCH_API_KEY"},
			ErrorThreshold: 10,
		},
		Engine: Engine{
			Concurrency:    3,
			MaxAttempts:    3,
			BatchDelayMs:   0,
			PollIntervalMs: 5000,
			MaxPolls:       120,
		},
		Image: Image{
			Concurrency: 3,
			MaxRetries:  2,
		},
	}
}
