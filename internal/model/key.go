package model

// 密钥池条目
type KeyConfig struct {
	Name     string `json:"name"`
	ApiKey   string `json:"api_key"`
	Platform string `json:"platform"`
	BaseUrl  string `json:"base_url,omitempty"`
	LastUsed int64  `json:"last_used,omitempty"`
}
