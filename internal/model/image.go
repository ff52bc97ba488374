package model

// 生图任务
type ImageJob struct {
	Id          string `json:"id"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`     // 风格名, 解析为提示词前缀
	RefImage    string `json:"ref_image,omitempty"` // 参考图, URL / 图库名 / data URI
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// 生图结果
type ImageResult struct {
	JobId     string `json:"job_id"`
	Ok        bool   `json:"ok"`
	Url       string `json:"url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

// 编排结果, 部分成功语义: 失败任务不影响成功任务
type OrchestrateResult struct {
	Results     []*ImageResult `json:"results"` // 按输入顺序
	Failed      []*ImageResult `json:"failed"`
	Diagnostics []string       `json:"diagnostics,omitempty"` // 密钥切换诊断信息
}
