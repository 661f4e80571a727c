package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/model/dto"
	"DayPulse/internal/service"
	"DayPulse/pkg/response"
)

// ListPendingNotifications 送达协作方拉取待发送的通知任务
// GET /api/v1/internal/notifications/pending?limit=50
func ListPendingNotifications(ctx context.Context, c *app.RequestContext) {
	// limit 不合法时交给 service 取默认值
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := service.Notification().ListPending(ctx, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// AckNotification 送达协作方按 task_code 回执 sent / failed
// POST /api/v1/internal/notifications/ack
func AckNotification(ctx context.Context, c *app.RequestContext) {
	var req dto.AckNotificationRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Notification().Ack(ctx, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
