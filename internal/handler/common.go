package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/middleware"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/response"
)

// requireUserID 从 JWT 上下文取用户 public_id 并转成数值
// 失败时已写错误响应，调用方直接 return 即可
func requireUserID(ctx context.Context, c *app.RequestContext) (int64, bool) {
	raw, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.Error(ctx, c, errors.InvalidUserID)
		return 0, false
	}

	return id, true
}

// pathID 解析路径中的数值 ID，格式不对按资源不存在处理
func pathID(ctx context.Context, c *app.RequestContext, name string, notFound errors.Definition) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(ctx, c, notFound)
		return 0, false
	}

	return id, true
}
