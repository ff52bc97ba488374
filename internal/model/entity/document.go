package entity

// 应用状态文档, 整体读写
type Document struct {
	Prompts    []*Prompt     `json:"prompts,omitempty"`
	VideoTasks []*VideoTask  `json:"video_tasks,omitempty"`
	Keys       []*KeyEntry   `json:"keys,omitempty"`
	Images     []*ImageAsset `json:"images,omitempty"`
	Settings   *Settings     `json:"settings,omitempty"`
}

type Prompt struct {
	Id          string  `json:"id"`                      // ID
	Text        string  `json:"text"`                    // 提示词
	Style       string  `json:"style,omitempty"`         // 风格
	RefImage    string  `json:"ref_image,omitempty"`     // 参考图
	AspectRatio string  `json:"aspect_ratio,omitempty"`  // 宽高比
	Status      string  `json:"status,omitempty"`        // 生图状态
	Progress    float64 `json:"progress,omitempty"`      // 进度
	ImagePath   string  `json:"image_path,omitempty"`    // 生成结果路径
	Error       string  `json:"error,omitempty"`         // 错误信息
	CreatedAt   int64   `json:"created_at,omitempty"`    // 创建时间
	UpdatedAt   int64   `json:"updated_at,omitempty"`    // 更新时间
}

type VideoTask struct {
	Id                string  `json:"id"`                            // ID
	PromptId          string  `json:"prompt_id,omitempty"`           // 关联提示词ID
	Prompt            string  `json:"prompt"`                        // 提示词
	ImageUrl          string  `json:"image_url,omitempty"`           // 参考图
	AspectRatio       string  `json:"aspect_ratio,omitempty"`        // 宽高比
	Platform          string  `json:"platform,omitempty"`            // 平台
	Status            string  `json:"status,omitempty"`              // 状态[pending:待提交, submitted:已提交, running:进行中, succeeded:已成功, failed:已失败, timeout:已超时, canceled:已取消]
	Progress          float64 `json:"progress,omitempty"`            // 进度
	ProviderRequestId string  `json:"provider_request_id,omitempty"` // 厂商任务ID
	Fingerprint       string  `json:"fingerprint,omitempty"`         // 指纹
	VideoUrl          string  `json:"video_url,omitempty"`           // 视频地址
	FileName          string  `json:"file_name,omitempty"`           // 文件名
	FilePath          string  `json:"file_path,omitempty"`           // 文件路径
	ErrorCode         string  `json:"error_code,omitempty"`          // 错误码
	ErrorMessage      string  `json:"error_message,omitempty"`       // 错误信息
	CreatedAt         int64   `json:"created_at,omitempty"`          // 创建时间
	UpdatedAt         int64   `json:"updated_at,omitempty"`          // 更新时间
}

type KeyEntry struct {
	Name      string `json:"name"`                 // 名称
	Key       string `json:"key"`                  // 密钥
	Platform  string `json:"platform"`             // 平台
	BaseUrl   string `json:"base_url,omitempty"`   // 接口地址
	LastUsed  int64  `json:"last_used,omitempty"`  // 最后使用时间
	Status    int    `json:"status,omitempty"`     // 状态[1:正常, 2:禁用]
	CreatedAt int64  `json:"created_at,omitempty"` // 创建时间
}

type ImageAsset struct {
	Name string `json:"name"` // 图库名
	Url  string `json:"url"`  // 地址或 data URI
}

type Settings struct {
	DefaultPlatform string `json:"default_platform,omitempty"` // 默认平台
	ApiKey          string `json:"api_key,omitempty"`          // 设置页配置的密钥
	ApiBaseUrl      string `json:"api_base_url,omitempty"`     // 设置页配置的接口地址
	ApiPlatform     string `json:"api_platform,omitempty"`     // 设置页密钥所属平台
}
