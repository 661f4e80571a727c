package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/service"
	"DayPulse/pkg/response"
)

// GetTodayDailyLog 查询当天日志，缺失时按用户时区懒建
// GET /api/v1/daily-logs/today
func GetTodayDailyLog(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	result, err := service.DailyLog().GetToday(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetDailyLogByDate 按日期查询历史日志，历史日期不补建
// GET /api/v1/daily-logs/:date
func GetDailyLogByDate(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	result, err := service.DailyLog().GetByDate(ctx, userID, c.Param("date"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
