package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/response"
)

// InternalOnly 校验内部接口的共享令牌，调度触发和通知网关走这里
// 未配置 INTERNAL_TOKEN 时内部接口整体关闭
func InternalOnly() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		expected := config.Cfg.InternalToken
		provided := string(c.GetHeader("X-Internal-Token"))

		if expected == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			logger.Logger.Warn("Internal endpoint rejected",
				zap.String("path", string(c.Path())),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Abort()
			response.Error(ctx, c, errors.Unauthorized)
			return
		}

		c.Next(ctx)
	}
}
