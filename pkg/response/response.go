package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	// 检查是否是 Definition 类型
	def, ok := err.(errors.Definition)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "RATE_LIMITED":
		return http.StatusTooManyRequests // 429
	case "INVALID_REQUEST", "INVALID_USER_ID",
		"CHECKIN_TYPE_INVALID", "SCHEDULED_TIME_INVALID",
		"CHECKIN_INVALID_OPERATION", "DATE_INVALID",
		"EMOTION_UNKNOWN", "USER_TIMEZONE_INVALID",
		"MOMENT_WHEN_INVALID", "TOOL_CALL_UNKNOWN", "TOOL_CALL_PARAMS_INVALID",
		"NOTIFICATION_STATUS_INVALID":
		return http.StatusBadRequest // 400
	case "UNAUTHORIZED", "TOKEN_INVALID", "TOKEN_CLAIMS_INVALID",
		"TOKEN_TYPE_INVALID", "TOKEN_USER_ID_MISSING":
		return http.StatusUnauthorized // 401
	case "USER_UNAVAILABLE":
		return http.StatusForbidden // 403
	case "CHECKIN_NOT_FOUND", "DAILY_LOG_NOT_FOUND",
		"USER_NOT_FOUND", "MOMENT_NOT_FOUND", "NOTIFICATION_TASK_NOT_FOUND":
		return http.StatusNotFound // 404
	case "CHECKIN_INVALID_TRANSITION", "SWEEP_IN_PROGRESS", "EMAIL_ALREADY_REGISTERED":
		return http.StatusConflict // 409
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	var details map[string]interface{}

	if def, ok := err.(errors.Definition); ok {
		code = def.Code
		message = def.Message
	} else {
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	statusCode := errorToHTTPStatus(err)

	var code, message string
	if def, ok := err.(errors.Definition); ok {
		code = def.Code
		message = def.Message
	} else {
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
