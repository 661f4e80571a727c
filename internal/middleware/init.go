package middleware

import (
	"go.uber.org/zap"

	"DayPulse/pkg/logger"
)

// Init 初始化所有需要前置准备的中间件，目前只有 JWT 鉴权依赖共享生成器
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
