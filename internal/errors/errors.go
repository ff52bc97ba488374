package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gogf/gf/v2/os/gctx"
	"github.com/gogf/gf/v2/os/gtime"
)

type IGenError interface {
	Unwrap() error
	Status() int
	ErrCode() any
	ErrMessage() string
	ErrType() string
}

type ApiError struct {
	HttpStatusCode int    `json:"-"`
	Code           any    `json:"code"`
	Message        string `json:"message"`
	Type           string `json:"type"`
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("statusCode: %d, code: %v, message: %s", e.HttpStatusCode, e.Code, e.Message)
}

type GenError struct {
	Err *ApiError `json:"error,omitempty"`
}

var (
	ERR_NIL                 = NewError(500, -1, "", "genbatch_error")
	ERR_UNKNOWN             = NewError(500, -1, "Unknown Error.", "genbatch_error")
	ERR_INTERNAL_ERROR      = NewError(500, 500, "Internal Error.", "genbatch_error")
	ERR_NO_AVAILABLE_KEY    = NewError(500, "genbatch_error", "No available key.", "genbatch_error")
	ERR_ALL_KEY             = NewError(500, "genbatch_error", "All key error.", "genbatch_error")
	ERR_INVALID_PARAMETER   = NewError(400, "invalid_parameter", "Invalid Parameter.", "genbatch_request_error")
	ERR_NOT_FOUND           = NewError(404, "unknown_url", "Unknown request URL.", "genbatch_request_error")
	ERR_NOT_AUTHORIZED      = NewError(403, "not_authorized", "Not Authorized.", "genbatch_request_error")
	ERR_TASK_NOT_EXIST      = NewError(404, "task_not_exist", "Task does not exist.", "genbatch_request_error")
	ERR_INVALID_API_KEY     = NewError(401, "invalid_api_key", "Incorrect API key provided or has been disabled.", "genbatch_request_error")
	ERR_INSUFFICIENT_QUOTA  = NewError(429, "insufficient_quota", "You exceeded your current quota.", "genbatch_request_error")
	ERR_GENERATE_FAILED     = NewError(500, "generate_failed", "Generate failed.", "genbatch_error")
	ERR_DOWNLOAD_FAILED     = NewError(500, "download_failed", "Download result failed.", "genbatch_error")
	ERR_NO_IMAGE_IN_RESULT  = NewError(500, "parse_failed", "No image found in response.", "genbatch_error")
	ERR_ALL_ENDPOINT_FAILED = NewError(500, "genbatch_error", "All endpoints unreachable.", "genbatch_error")
)

func NewError(status int, code any, message, typ string) error {
	return &GenError{
		Err: &ApiError{
			HttpStatusCode: status,
			Code:           code,
			Message:        message,
			Type:           typ,
		},
	}
}

func NewErrorf(status int, code any, typ, message string, args ...interface{}) error {
	return &GenError{
		Err: &ApiError{
			HttpStatusCode: status,
			Code:           code,
			Message:        fmt.Sprintf(message, args...),
			Type:           typ,
		},
	}
}

// 统一对外错误, 附加链路信息
func Error(ctx context.Context, err error) IGenError {

	if err == nil {
		return ERR_NIL.(IGenError)
	}

	if e, ok := err.(IGenError); ok {
		return NewErrorf(e.Status(), e.ErrCode(), e.ErrType(), e.ErrMessage()+" TraceId: %s Timestamp: %d", gctx.CtxId(ctx), gtime.TimestampMilli()).(IGenError)
	}

	e := ERR_UNKNOWN.(IGenError)

	return NewErrorf(e.Status(), e.ErrCode(), e.ErrType(), err.Error()+" TraceId: %s Timestamp: %d", gctx.CtxId(ctx), gtime.TimestampMilli()).(IGenError)
}

func (e *GenError) Error() string {
	return e.Err.Error()
}

func (e *GenError) Unwrap() error {
	return e.Err
}

// 按错误码比较, 供 errors.Is 使用
func (e *GenError) Is(target error) bool {
	if t, ok := target.(*GenError); ok {
		return e.Err.Code == t.Err.Code
	}
	return false
}

func (e *GenError) Status() int {
	return e.Err.HttpStatusCode
}

func (e *GenError) ErrCode() any {
	return e.Err.Code
}

func (e *GenError) ErrMessage() string {
	return e.Err.Message
}

func (e *GenError) ErrType() string {
	return e.Err.Type
}

// 错误分类: 是否可重试, 是否应当停用当前密钥
func IsNeedRetry(err error) (isRetry bool, isDisabled bool) {

	if err == nil {
		return false, false
	}

	apiError := &ApiError{}
	if As(err, &apiError) {

		switch apiError.HttpStatusCode {
		case 401:
			return true, true
		case 408, 429:
			if Is(err, ERR_INSUFFICIENT_QUOTA) {
				return true, true
			}
			return true, false
		}

		if apiError.HttpStatusCode >= 500 {
			return true, false
		}

		// 其余 4xx 为厂商业务错误, 不重试
		return false, false
	}

	opError := &net.OpError{}
	if As(err, &opError) {
		return true, false
	}

	var netErr net.Error
	if As(err, &netErr) && netErr.Timeout() {
		return true, false
	}

	// 未知错误按网络类瞬时错误处理
	return true, false
}

func IsRetryable(err error) bool {
	isRetry, _ := IsNeedRetry(err)
	return isRetry
}

func New(text string) error {
	return errors.New(text)
}

func Newf(format string, args ...interface{}) error {
	return errors.New(fmt.Sprintf(format, args...))
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
