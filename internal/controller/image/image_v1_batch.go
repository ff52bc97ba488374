package image

import (
	"context"

	"github.com/aigcbox/genbatch/api/image/v1"
	"github.com/aigcbox/genbatch/internal/service"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/gogf/gf/v2/os/gtime"
)

func (c *ControllerV1) Batch(ctx context.Context, req *v1.BatchReq) (res *v1.BatchRes, err error) {

	now := gtime.TimestampMilli()
	defer func() {
		logger.Debugf(ctx, "Controller Batch time: %d", gtime.TimestampMilli()-now)
	}()

	return service.Image().Batch(ctx, req)
}
