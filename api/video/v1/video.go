package v1

import (
	"github.com/aigcbox/genbatch/internal/model"
	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/gogf/gf/v2/frame/g"
)

// Batch接口请求参数
type BatchReq struct {
	g.Meta   `path:"/batch" tags:"video" method:"post" summary:"Batch接口"`
	TaskIds  []string `json:"task_ids" v:"required#任务ID不能为空"`
	Platform string   `json:"platform"`
}

// Batch接口响应参数
type BatchRes struct {
	g.Meta `mime:"application/json" example:"json"`
	Tasks  []*model.BaseTask `json:"tasks"`
}

// Tasks接口请求参数
type TasksReq struct {
	g.Meta `path:"/tasks" tags:"video" method:"get" summary:"Tasks接口"`
}

// Tasks接口响应参数
type TasksRes struct {
	g.Meta `mime:"application/json" example:"json"`
	Tasks  []*entity.VideoTask `json:"tasks"`
}
