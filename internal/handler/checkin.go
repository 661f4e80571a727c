package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DayPulse/internal/model/dto"
	"DayPulse/internal/service"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/response"
)

// GetTodayCheckIns 查询当天全部打卡，客户端每次进入时加载
// GET /api/v1/check-ins/today
func GetTodayCheckIns(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	result, err := service.CheckIn().Today(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetCheckIn 查询单条打卡详情
// GET /api/v1/check-ins/:checkin_id
func GetCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	result, err := service.CheckIn().Get(ctx, userID, checkInID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// StartCheckIn 把打卡置为进行中并拿到对话引导
// POST /api/v1/check-ins/:checkin_id/start
func StartCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	result, err := service.CheckIn().Start(ctx, userID, checkInID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CompleteCheckIn 提交总结与洞察，完成打卡
// POST /api/v1/check-ins/:checkin_id/complete
func CompleteCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	var req dto.CompleteCheckInRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.CheckIn().Complete(ctx, userID, checkInID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SkipCheckIn 跳过一条打卡
// POST /api/v1/check-ins/:checkin_id/skip
func SkipCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	result, err := service.CheckIn().Skip(ctx, userID, checkInID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CreateAdhocCheckIn 用户主动发起临时打卡
// POST /api/v1/check-ins/adhoc
func CreateAdhocCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateAdhocCheckInRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.CheckIn().CreateAdhoc(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// AddCheckInAction 往进行中的打卡追加一条动作记录
// POST /api/v1/check-ins/:checkin_id/actions
func AddCheckInAction(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	var req dto.AddActionRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.CheckIn().AddAction(ctx, userID, checkInID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CheckInToolCall 对话协作方回调的工具调用入口
// POST /api/v1/check-ins/:checkin_id/tool-calls
func CheckInToolCall(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUserID(ctx, c)
	if !ok {
		return
	}

	checkInID, ok := pathID(ctx, c, "checkin_id", errors.CheckInNotFound)
	if !ok {
		return
	}

	var req dto.ToolCallRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.CheckIn().ToolCall(ctx, userID, checkInID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
