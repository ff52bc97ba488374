package video

import (
	"context"

	"github.com/aigcbox/genbatch/api/video/v1"
	"github.com/aigcbox/genbatch/internal/service"
)

func (c *ControllerV1) Tasks(ctx context.Context, req *v1.TasksReq) (res *v1.TasksRes, err error) {
	return service.Video().Tasks(ctx, req)
}
