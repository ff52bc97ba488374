package consts

const (
	TRACE_ID = "Trace-Id"
)

// 任务状态
const (
	TASK_STATUS_PENDING   = "pending"
	TASK_STATUS_SUBMITTED = "submitted"
	TASK_STATUS_RUNNING   = "running"
	TASK_STATUS_SUCCEEDED = "succeeded"
	TASK_STATUS_FAILED    = "failed"
	TASK_STATUS_TIMEOUT   = "timeout"
	TASK_STATUS_CANCELED  = "canceled"
)

// 查询状态, 厂商返回归一化后的取值
const (
	QUERY_STATUS_QUEUED    = "queued"
	QUERY_STATUS_RUNNING   = "running"
	QUERY_STATUS_SUCCEEDED = "succeeded"
	QUERY_STATUS_FAILED    = "failed"
)

// 平台
const (
	PLATFORM_KLING        = "kling"
	PLATFORM_VIDU         = "vidu"
	PLATFORM_OPENAI_IMAGE = "openai-image"
)

const (
	ERROR_KEY = "gen:error:key:%s" // 密钥错误计数, field 为密钥
	LOCK_KEY  = "gen:lock:%s"
)

// 错误码
const (
	ERR_CODE_INVALID_PARAMETER = "invalid_parameter"
	ERR_CODE_SUBMIT_FAILED     = "submit_failed"
	ERR_CODE_GENERATE_FAILED   = "generate_failed"
	ERR_CODE_DOWNLOAD_FAILED   = "download_failed"
	ERR_CODE_TIMEOUT           = "timeout"
	ERR_CODE_PARSE_FAILED      = "parse_failed"
)
