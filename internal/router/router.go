package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"DayPulse/config"
	"DayPulse/internal/handler"
	"DayPulse/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	// 纯 API 客户端不带 CSRF token，只在配好密钥的 web 部署上开
	if config.Cfg.CSRFSecret != "" && config.Cfg.SessionSecret != "" {
		h.Use(middleware.SessionMiddleware())
		h.Use(middleware.CSRFMiddleware())
	}

	v1 := h.Group("/api/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/register", handler.Register)
		auth.POST("/token/refresh", handler.RefreshToken)
		auth.POST("/logout", middleware.AuthMiddleware(), handler.Logout)
	}

	// 用户资料与设置
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", handler.GetUserProfile)
		users.PATCH("/me/settings", middleware.UserSettingsRateLimitMiddleware(), handler.UpdateUserSettings)
	}

	// 打卡生命周期路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		checkIns.GET("/today", handler.GetTodayCheckIns)
		checkIns.POST("/adhoc", handler.CreateAdhocCheckIn)
		checkIns.GET("/:checkin_id", handler.GetCheckIn)
		checkIns.POST("/:checkin_id/start", handler.StartCheckIn)
		checkIns.POST("/:checkin_id/complete", handler.CompleteCheckIn)
		checkIns.POST("/:checkin_id/skip", handler.SkipCheckIn)
		checkIns.POST("/:checkin_id/actions", handler.AddCheckInAction)
		checkIns.POST("/:checkin_id/tool-calls", handler.CheckInToolCall)
	}

	// 日志查询路由
	dailyLogs := v1.Group("/daily-logs")
	dailyLogs.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		dailyLogs.GET("/today", handler.GetTodayDailyLog)
		dailyLogs.GET("/:date", handler.GetDailyLogByDate)
	}

	// 情绪字典
	emotions := v1.Group("/emotions")
	emotions.Use(middleware.AuthMiddleware())
	{
		emotions.GET("", handler.ListEmotions)
	}

	// 瞬间记录路由
	moments := v1.Group("/moments")
	moments.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		moments.GET("", handler.ListMoments)
		moments.POST("", handler.CreateMoment)
	}

	// 内部接口：调度触发与送达协作方，走共享令牌不走 JWT
	internal := v1.Group("/internal")
	internal.Use(middleware.InternalOnly())
	{
		internal.POST("/schedule/sweep", handler.TriggerSweep)
		internal.GET("/notifications/pending", handler.ListPendingNotifications)
		internal.POST("/notifications/ack", handler.AckNotification)
	}
}
