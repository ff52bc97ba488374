package model

// 提交载荷
type SubmitPayload struct {
	Prompt          string         `json:"prompt"`
	ImageUrl        string         `json:"image_url,omitempty"`    // 参考图
	AspectRatio     string         `json:"aspect_ratio,omitempty"` // 宽高比
	Seed            int            `json:"seed,omitempty"`
	Watermark       bool           `json:"watermark,omitempty"`
	CallbackUrl     string         `json:"callback_url,omitempty"`
	TranslationMode string         `json:"translation_mode,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"` // 厂商特有参数
}

// 提交结果
type SubmitResult struct {
	ProviderRequestId string `json:"provider_request_id"`
}

// 查询结果, 各厂商返回统一归一化到该结构
type QueryResult struct {
	Status       string  `json:"status"`   // queued, running, succeeded, failed
	Progress     float64 `json:"progress"` // [0,1]
	ResultUrl    string  `json:"result_url,omitempty"`
	ErrorCode    string  `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// 任务, 引擎的工作单元
type BaseTask struct {
	Id                string         `json:"id"`
	Status            string         `json:"status"`
	Progress          float64        `json:"progress"`
	Input             *SubmitPayload `json:"input"`
	ProviderRequestId string         `json:"provider_request_id,omitempty"`
	Attempts          int            `json:"attempts"`
	MaxAttempts       int            `json:"max_attempts"`
	Fingerprint       string         `json:"fingerprint,omitempty"`
	ResultUrl         string         `json:"result_url,omitempty"`
	LocalPath         string         `json:"local_path,omitempty"`
	ActualFilename    string         `json:"actual_filename,omitempty"`
	ErrorCode         string         `json:"error_code,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	CreatedAt         int64          `json:"created_at"`
	UpdatedAt         int64          `json:"updated_at"`
}

// 是否终态
func (t *BaseTask) IsTerminal() bool {
	switch t.Status {
	case "succeeded", "failed", "timeout", "canceled":
		return true
	}
	return false
}
