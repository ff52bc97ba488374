package v1

import (
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/gogf/gf/v2/frame/g"
)

// Batch接口请求参数
type BatchReq struct {
	g.Meta    `path:"/batch" tags:"image" method:"post" summary:"Batch接口"`
	PromptIds []string `json:"prompt_ids" v:"required#提示词ID不能为空"`
}

// Batch接口响应参数
type BatchRes struct {
	g.Meta      `mime:"application/json" example:"json"`
	Results     []*model.ImageResult `json:"results"`
	Failed      []*model.ImageResult `json:"failed"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}
