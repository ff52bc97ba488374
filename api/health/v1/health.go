package v1

import "github.com/gogf/gf/v2/frame/g"

// Health接口请求参数
type HealthReq struct {
	g.Meta `path:"/health" tags:"health" method:"get" summary:"Health接口"`
}

// Health接口响应参数
type HealthRes struct {
	g.Meta `mime:"application/json" example:"json"`
	Status string `json:"status"`
}
