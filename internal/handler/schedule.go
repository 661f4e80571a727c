package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/model/dto"
	"DayPulse/internal/schedule"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/response"
)

// TriggerSweep 手动触发全量排期，和定时器走同一个入口
// POST /api/v1/internal/schedule/sweep
func TriggerSweep(ctx context.Context, c *app.RequestContext) {
	var req dto.SweepRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	var date *time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			response.Error(ctx, c, errors.DateInvalid)
			return
		}
		date = &parsed
	}

	result, err := schedule.GetScheduler().SweepOnce(ctx, time.Now(), date)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
