package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/model/dto"
	"DayPulse/internal/service"
	"DayPulse/pkg/response"
)

// CreateMoment 记录一个值得记住的瞬间
// POST /api/v1/moments
func CreateMoment(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateMomentRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Moment().Create(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ListMoments 按天列出瞬间记录
// GET /api/v1/moments?date=YYYY-MM-DD&limit=50
func ListMoments(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	var q dto.MomentListQuery
	if err := c.BindQuery(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Moment().List(ctx, userID, &q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
