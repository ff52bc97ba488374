package cmd

import (
	"context"
	"net/http"

	"github.com/aigcbox/genbatch/internal/controller/health"
	"github.com/aigcbox/genbatch/internal/controller/image"
	"github.com/aigcbox/genbatch/internal/controller/video"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/aigcbox/genbatch/utility/redis"
	"github.com/gogf/gf/v2/encoding/gjson"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/os/gcmd"
	"github.com/gogf/gf/v2/text/gstr"
)

var (
	Main = gcmd.Command{
		Name:  "main",
		Usage: "main",
		Brief: "start http server",
		Func: func(ctx context.Context, parser *gcmd.Parser) (err error) {

			if err = redis.Init(ctx); err != nil {
				logger.Errorf(ctx, "redis init error: %v, key error counting disabled", err)
			}

			s := g.Server()

			s.BindHookHandler("/*", ghttp.HookBeforeServe, beforeServeHook)

			s.Group("/", func(r *ghttp.RouterGroup) {
				r.Bind(
					func(r *ghttp.Request) {
						r.Response.WriteStatus(http.StatusOK, "Hello GenBatch")
						r.Exit()
						return
					},
				)
			})

			s.Group("/", func(r *ghttp.RouterGroup) {
				r.Middleware(middlewareHandlerResponse)
				r.Bind(
					health.NewV1(),
				)
			})

			s.Group("/v1", func(v1 *ghttp.RouterGroup) {

				v1.Middleware(middleware)
				v1.Middleware(middlewareHandlerResponse)

				v1.Group("/video", func(g *ghttp.RouterGroup) {
					g.Bind(
						video.NewV1(),
					)
				})

				v1.Group("/image", func(g *ghttp.RouterGroup) {
					g.Bind(
						image.NewV1(),
					)
				})
			})

			s.Run()
			return nil
		},
	}
)

func beforeServeHook(r *ghttp.Request) {
	logger.Debugf(r.GetCtx(), "beforeServeHook [isFile: %t] URI: %s", r.IsFileRequest(), r.RequestURI)
	r.Response.CORSDefault()
}

func middleware(r *ghttp.Request) {

	if gstr.HasPrefix(r.GetHeader("Content-Type"), "application/json") {
		logger.Debugf(r.GetCtx(), "url: %s, request body: %s", r.GetUrl(), r.GetBodyString())
	} else {
		logger.Debugf(r.GetCtx(), "url: %s, Content-Type: %s", r.GetUrl(), r.GetHeader("Content-Type"))
	}

	r.Middleware.Next()
}

type defaultHandlerResponse struct {
	Code    any         `json:"code"    dc:"Error code"`
	Message string      `json:"message" dc:"Error message"`
	Data    interface{} `json:"data"    dc:"Result data for certain request according API definition"`
}

func middlewareHandlerResponse(r *ghttp.Request) {

	r.Middleware.Next()

	// There's custom buffer content, it then exits current handler.
	if r.Response.BufferLength() > 0 {
		return
	}

	var (
		ctx = r.GetCtx()
		err = r.GetError()
		res = r.GetHandlerResponse()
	)

	if err == nil && r.Response.Status > 0 && r.Response.Status != http.StatusOK {

		switch r.Response.Status {
		case http.StatusNotFound:
			err = errors.ERR_NOT_FOUND
		case http.StatusForbidden:
			err = errors.ERR_NOT_AUTHORIZED
		default:
			err = errors.ERR_UNKNOWN
		}

		r.SetError(err)
	}

	if err != nil {

		e := errors.Error(ctx, err)

		logger.Debugf(ctx, "url: %s, response body: %s", r.GetUrl(), gjson.MustEncodeString(e))

		r.Response.Header().Set("Content-Type", "application/json")
		r.Response.WriteStatus(e.Status(), gjson.MustEncodeString(e))

		return
	}

	data := defaultHandlerResponse{
		Code:    0,
		Message: "success",
		Data:    res,
	}

	logger.Debugf(ctx, "url: %s, response body: %s", r.GetUrl(), gjson.MustEncodeString(data))

	r.Response.WriteJson(data)
}
