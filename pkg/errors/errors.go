package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized                 = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID                = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TokenGeneratorNotInitialized = Definition{Code: "TOKEN_GENERATOR_NOT_INITIALIZED", Message: "Token generator not initialized"}
)

// 令牌错误。
var (
	TokenInvalid                 = Definition{Code: "TOKEN_INVALID", Message: "Token invalid"}
	TokenClaimsInvalid           = Definition{Code: "TOKEN_CLAIMS_INVALID", Message: "Token claims invalid"}
	TokenTypeInvalid             = Definition{Code: "TOKEN_TYPE_INVALID", Message: "Token type invalid"}
	TokenSigningMethodUnexpected = Definition{Code: "TOKEN_SIGNING_METHOD_UNEXPECTED", Message: "Unexpected token signing method"}
	TokenUserIDMissing           = Definition{Code: "TOKEN_USER_ID_MISSING", Message: "Token carries no user ID"}
)

// 通用请求错误。
var (
	InvalidRequest = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	RateLimited    = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// 打卡模块错误。
var (
	CheckInNotFound          = Definition{Code: "CHECKIN_NOT_FOUND", Message: "Check-in not found"}
	CheckInInvalidTransition = Definition{Code: "CHECKIN_INVALID_TRANSITION", Message: "Check-in state transition not allowed"}
	CheckInInvalidOperation  = Definition{Code: "CHECKIN_INVALID_OPERATION", Message: "Operation not allowed on a finished check-in"}
	CheckInTypeInvalid       = Definition{Code: "CHECKIN_TYPE_INVALID", Message: "Check-in type invalid"}
	ScheduledTimeInvalid     = Definition{Code: "SCHEDULED_TIME_INVALID", Message: "Scheduled time invalid"}
)

// 日志模块错误。
var (
	DailyLogNotFound = Definition{Code: "DAILY_LOG_NOT_FOUND", Message: "Daily log not found"}
	DateInvalid      = Definition{Code: "DATE_INVALID", Message: "Date must be formatted YYYY-MM-DD"}
)

// 情绪目录错误。
var (
	EmotionUnknown = Definition{Code: "EMOTION_UNKNOWN", Message: "Emotion not present in the reference catalog"}
)

// 用户模块错误。
var (
	UserNotFound           = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
	UserUnavailable        = Definition{Code: "USER_UNAVAILABLE", Message: "User inactive or deleted"}
	UserTimezoneInvalid    = Definition{Code: "USER_TIMEZONE_INVALID", Message: "Timezone not recognized"}
	EmailAlreadyRegistered = Definition{Code: "EMAIL_ALREADY_REGISTERED", Message: "Email already registered"}
)

// 时刻记录模块错误。
var (
	MomentNotFound    = Definition{Code: "MOMENT_NOT_FOUND", Message: "Moment not found"}
	MomentWhenInvalid = Definition{Code: "MOMENT_WHEN_INVALID", Message: "Moment time-of-day marker invalid"}
)

// 工具调用错误。
var (
	ToolCallUnknown       = Definition{Code: "TOOL_CALL_UNKNOWN", Message: "Tool not recognized"}
	ToolCallParamsInvalid = Definition{Code: "TOOL_CALL_PARAMS_INVALID", Message: "Tool call parameters invalid"}
)

// 通知任务错误。
var (
	NotificationTaskNotFound  = Definition{Code: "NOTIFICATION_TASK_NOT_FOUND", Message: "Notification task not found or already processed"}
	NotificationStatusInvalid = Definition{Code: "NOTIFICATION_STATUS_INVALID", Message: "Notification status must be sent or failed"}
)

// 排期模块错误。
var (
	SweepInProgress = Definition{Code: "SWEEP_IN_PROGRESS", Message: "A schedule sweep is already running"}
	ScheduleFailed  = Definition{Code: "SCHEDULE_FAILED", Message: "Failed to schedule check-ins"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:                 Unauthorized,
	InvalidUserID.Code:                InvalidUserID,
	TokenGeneratorNotInitialized.Code: TokenGeneratorNotInitialized,
	TokenInvalid.Code:                 TokenInvalid,
	TokenClaimsInvalid.Code:           TokenClaimsInvalid,
	TokenTypeInvalid.Code:             TokenTypeInvalid,
	TokenSigningMethodUnexpected.Code: TokenSigningMethodUnexpected,
	TokenUserIDMissing.Code:           TokenUserIDMissing,
	InvalidRequest.Code:               InvalidRequest,
	RateLimited.Code:                  RateLimited,
	CheckInNotFound.Code:              CheckInNotFound,
	CheckInInvalidTransition.Code:     CheckInInvalidTransition,
	CheckInInvalidOperation.Code:      CheckInInvalidOperation,
	CheckInTypeInvalid.Code:           CheckInTypeInvalid,
	ScheduledTimeInvalid.Code:         ScheduledTimeInvalid,
	DailyLogNotFound.Code:             DailyLogNotFound,
	DateInvalid.Code:                  DateInvalid,
	EmotionUnknown.Code:               EmotionUnknown,
	UserNotFound.Code:                 UserNotFound,
	UserUnavailable.Code:              UserUnavailable,
	UserTimezoneInvalid.Code:          UserTimezoneInvalid,
	EmailAlreadyRegistered.Code:       EmailAlreadyRegistered,
	MomentNotFound.Code:               MomentNotFound,
	MomentWhenInvalid.Code:            MomentWhenInvalid,
	ToolCallUnknown.Code:              ToolCallUnknown,
	ToolCallParamsInvalid.Code:        ToolCallParamsInvalid,
	NotificationTaskNotFound.Code:     NotificationTaskNotFound,
	NotificationStatusInvalid.Code:    NotificationStatusInvalid,
	SweepInProgress.Code:              SweepInProgress,
	ScheduleFailed.Code:               ScheduleFailed,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
