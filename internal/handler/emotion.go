package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/service"
	"DayPulse/pkg/response"
)

// ListEmotions 列出情绪字典
// GET /api/v1/emotions
func ListEmotions(ctx context.Context, c *app.RequestContext) {
	result, err := service.Emotion().List(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
