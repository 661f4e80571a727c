package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/dialogue"
	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/prompt"
	"DayPulse/internal/repository"
	"DayPulse/internal/schedule"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
	"DayPulse/utils"
)

const (
	// 临时打卡允许的过去宽限，更早的排期时间视为非法
	adhocPastGrace = time.Minute
	// 进提示词的当日瞬间记录条数上限
	promptMomentLimit = 20
)

var (
	checkInService *CheckInService
	checkInOnce    sync.Once
)

// CheckIn 获取打卡服务单例
func CheckIn() *CheckInService {
	checkInOnce.Do(func() {
		checkInService = &CheckInService{}
	})
	return checkInService
}

// CheckInService 打卡服务，承载打卡生命周期编排
type CheckInService struct{}

// Today 返回用户当天的打卡列表
//
// active 用户首次访问会惰性补齐当天的固定排期，不依赖调度 sweep 先跑；
// 非 active 用户只读现状，没有日志就返回空列表。
func (s *CheckInService) Today(ctx context.Context, userPublicID int64) (*dto.TodayCheckInsData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	today := utils.TodayIn(loc)

	var lg *model.DailyLog
	if user.IsActive() {
		lg, _, err = schedule.GetScheduler().ScheduleDailyCheckIns(ctx, user, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to ensure today's schedule: %w", err)
		}
	} else {
		lg, err = repository.DailyLogs().GetByUserAndDate(ctx, user.ID, today)
		if errors.Is(err, pkgerrors.DailyLogNotFound) {
			return &dto.TodayCheckInsData{
				Date:     today.Format("2006-01-02"),
				CheckIns: []dto.CheckInListItem{},
			}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	checkIns, err := repository.CheckIns().ListByDailyLog(ctx, lg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}

	data := &dto.TodayCheckInsData{
		Date:     lg.DateString(),
		CheckIns: make([]dto.CheckInListItem, 0, len(checkIns)),
	}
	for _, c := range checkIns {
		data.CheckIns = append(data.CheckIns, checkInListItem(c))
	}
	return data, nil
}

// Get 返回单条打卡详情，限定属主
func (s *CheckInService) Get(ctx context.Context, userPublicID, checkInPublicID int64) (*dto.CheckInData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}
	return checkInData(c, s.logDateFor(ctx, c)), nil
}

// Start 开始一次打卡会话
//
// 先组装提示词上下文并向对话协作方开会话，再做 scheduled -> in_progress
// 迁移。迁移带状态守卫，并发重复 start 只有一个成功。
func (s *CheckInService) Start(ctx context.Context, userPublicID, checkInPublicID int64) (*dto.StartCheckInResponse, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CheckInStatusScheduled {
		return nil, pkgerrors.CheckInInvalidTransition
	}

	history, err := repository.CheckIns().ListCompletedByDailyLog(ctx, c.DailyLogID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's history: %w", err)
	}
	moments, err := repository.Moments().ListByDailyLog(ctx, c.DailyLogID, promptMomentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's moments: %w", err)
	}

	pctx, err := prompt.Build(user, c, history, moments)
	if err != nil {
		return nil, fmt.Errorf("failed to build conversation context: %w", err)
	}

	conversationRef, err := dialogue.Default().OpenConversation(ctx, user.PublicID, string(c.CheckInType))
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	now := time.Now()
	if err := c.Start(conversationRef, now); err != nil {
		return nil, err
	}
	if err := repository.CheckIns().UpdateTransition(ctx, c, []model.CheckInStatus{model.CheckInStatusScheduled}); err != nil {
		return nil, err
	}

	logger.Logger.Info("Check-in started",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("check_in_id", c.PublicID),
		zap.String("check_in_type", string(c.CheckInType)))

	return &dto.StartCheckInResponse{
		ID:              strconv.FormatInt(c.PublicID, 10),
		Status:          string(c.Status),
		ConversationRef: conversationRef,
		SystemPrompt:    pctx.SystemPrompt,
		InitialMessage:  pctx.InitialMessage,
	}, nil
}

// Complete 完成一次打卡，写入总结、洞察与随带的动作记录
//
// 状态迁移成功后才做聚合写入（情绪落表、日报触发），聚合失败不影响
// 已完成的打卡本身。
func (s *CheckInService) Complete(ctx context.Context, userPublicID, checkInPublicID int64, req *dto.CompleteCheckInRequest) (*dto.CheckInData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := c.Complete(req.Summary, req.Insights, now); err != nil {
		return nil, err
	}

	appended := make([]model.ActionRecord, 0, len(req.ActionsTaken))
	for _, rec := range req.ActionsTaken {
		if rec.Timestamp.IsZero() {
			rec.Timestamp = now
		}
		appended = append(appended, rec)
	}

	from := []model.CheckInStatus{model.CheckInStatusScheduled, model.CheckInStatusInProgress}
	if err := repository.CheckIns().UpdateTransition(ctx, c, from, appended...); err != nil {
		return nil, err
	}
	c.ActionsTaken = append(c.ActionsTaken, appended...)

	DailyLog().ApplyCompletion(ctx, user, c)

	metrics.RecordCheckInCompleted(ctx, string(c.CheckInType))
	logger.Logger.Info("Check-in completed",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("check_in_id", c.PublicID),
		zap.String("check_in_type", string(c.CheckInType)),
		zap.Int("action_count", len(appended)))

	return checkInData(c, s.logDateFor(ctx, c)), nil
}

// Skip 跳过一次还未开始的打卡
func (s *CheckInService) Skip(ctx context.Context, userPublicID, checkInPublicID int64) (*dto.CheckInData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}

	if err := c.Skip(time.Now()); err != nil {
		return nil, err
	}
	if err := repository.CheckIns().UpdateTransition(ctx, c, []model.CheckInStatus{model.CheckInStatusScheduled}); err != nil {
		return nil, err
	}

	metrics.RecordCheckInSkipped(ctx, string(c.CheckInType))
	logger.Logger.Info("Check-in skipped",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("check_in_id", c.PublicID),
		zap.String("check_in_type", string(c.CheckInType)))

	return checkInData(c, s.logDateFor(ctx, c)), nil
}

// CreateAdhoc 用户手动创建一条临时打卡
func (s *CheckInService) CreateAdhoc(ctx context.Context, userPublicID int64, req *dto.CreateAdhocCheckInRequest) (*dto.CheckInData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, lg, err := s.createAdhoc(ctx, user, req, model.TriggerSourceUser)
	if err != nil {
		return nil, err
	}
	return checkInData(c, lg.DateString()), nil
}

// createAdhoc 临时打卡的共享创建路径，source 区分用户手动与工具调用
//
// 排期时间缺省取当下，这样分发循环下一轮就能看到它；指定未来时间的
// 临时打卡落到目标时间在用户时区下的那一天。
func (s *CheckInService) createAdhoc(ctx context.Context, user *model.User, req *dto.CreateAdhocCheckInRequest, source string) (*model.CheckIn, *model.DailyLog, error) {
	now := time.Now()
	scheduledTime := now
	if req.ScheduledTime != nil {
		if req.ScheduledTime.Before(now.Add(-adhocPastGrace)) {
			return nil, nil, pkgerrors.ScheduledTimeInvalid
		}
		scheduledTime = *req.ScheduledTime
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" && source == model.TriggerSourceUser {
		reason = "user_requested"
	}

	return schedule.GetScheduler().CreateDynamicCheckIn(ctx, user, scheduledTime, model.TriggerContext{
		Source: source,
		Reason: reason,
		Event:  strings.TrimSpace(req.Event),
		Extra:  req.TriggerExtra,
	})
}

// AddAction 在非终态打卡上追加一条动作记录
func (s *CheckInService) AddAction(ctx context.Context, userPublicID, checkInPublicID int64, req *dto.AddActionRequest) (*dto.CheckInData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, pkgerrors.InvalidRequest
	}

	rec := model.ActionRecord{Action: action, Params: req.Params, Timestamp: time.Now()}
	if err := repository.CheckIns().AppendAction(ctx, c.ID, rec); err != nil {
		return nil, err
	}

	// 并发追加时 JSONB 里可能已有别的新记录，取回权威状态再返回
	refreshed, err := repository.CheckIns().GetByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return checkInData(refreshed, s.logDateFor(ctx, refreshed)), nil
}

// ToolCall 对话协作方的工具调用回调入口
//
// 调用统一挂在某次未完结的打卡上：先执行动作本身，再把调用记录追加进
// actions_taken。动作成功后追加失败不回滚，Recorded=false 留给上游感知。
func (s *CheckInService) ToolCall(ctx context.Context, userPublicID, checkInPublicID int64, req *dto.ToolCallRequest) (*dto.ToolCallResponse, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	c, err := repository.CheckIns().GetByPublicID(ctx, user.ID, checkInPublicID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, pkgerrors.CheckInInvalidOperation
	}

	tool := strings.TrimSpace(req.Tool)
	resp := &dto.ToolCallResponse{Tool: tool}

	switch tool {
	case "create_reminder":
		adhocReq := &dto.CreateAdhocCheckInRequest{
			Reason: stringParam(req.Params, "reason"),
			Event:  stringParam(req.Params, "event"),
		}
		if raw := stringParam(req.Params, "scheduled_time"); raw != "" {
			at, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, pkgerrors.ToolCallParamsInvalid
			}
			adhocReq.ScheduledTime = &at
		}
		created, lg, err := s.createAdhoc(ctx, user, adhocReq, model.TriggerSourceDialogueTool)
		if err != nil {
			return nil, err
		}
		resp.CheckIn = checkInData(created, lg.DateString())

	case "create_task":
		// 任务本体由对话协作方落在外部系统，这里只记录动作
		if stringParam(req.Params, "title") == "" {
			return nil, pkgerrors.ToolCallParamsInvalid
		}

	case "save_moment":
		momentReq := &dto.CreateMomentRequest{
			WhatHappened:   stringParam(req.Params, "what_happened"),
			WhenItHappened: stringParam(req.Params, "when_it_happened"),
			HowItFelt:      stringParam(req.Params, "how_it_felt"),
			Details:        mapParam(req.Params, "details"),
		}
		if momentReq.WhatHappened == "" {
			return nil, pkgerrors.ToolCallParamsInvalid
		}
		m, err := Moment().createForUser(ctx, user, momentReq, model.MomentSourceDialogueTool, &c.ID)
		if err != nil {
			return nil, err
		}
		resp.MomentID = strconv.FormatInt(m.PublicID, 10)

	default:
		return nil, pkgerrors.ToolCallUnknown
	}

	rec := model.ActionRecord{Action: tool, Params: req.Params, Timestamp: time.Now()}
	if err := repository.CheckIns().AppendAction(ctx, c.ID, rec); err != nil {
		logger.Logger.Warn("Tool action executed but not recorded on check-in",
			zap.Int64("check_in_id", c.PublicID),
			zap.String("tool", tool),
			zap.Error(err))
	} else {
		resp.Recorded = true
	}

	logger.Logger.Info("Tool call handled",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("check_in_id", c.PublicID),
		zap.String("tool", tool),
		zap.Bool("recorded", resp.Recorded))
	return resp, nil
}

// logDateFor 解析打卡所属日志的日期，失败只记日志返回空串
func (s *CheckInService) logDateFor(ctx context.Context, c *model.CheckIn) string {
	lg, err := repository.DailyLogs().GetByID(ctx, c.DailyLogID)
	if err != nil {
		logger.Logger.Warn("Failed to resolve daily log date",
			zap.Int64("check_in_id", c.PublicID),
			zap.Int64("daily_log_id", c.DailyLogID),
			zap.Error(err))
		return ""
	}
	return lg.DateString()
}

// checkInListItem 打卡列表项 DTO
func checkInListItem(c *model.CheckIn) dto.CheckInListItem {
	return dto.CheckInListItem{
		ID:              strconv.FormatInt(c.PublicID, 10),
		CheckInType:     string(c.CheckInType),
		TypeDisplayName: c.CheckInType.DisplayName(),
		Status:          string(c.Status),
		ScheduledTime:   c.ScheduledTime,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
		Summary:         c.Summary,
	}
}

// checkInData 打卡详情 DTO
func checkInData(c *model.CheckIn, date string) *dto.CheckInData {
	actions := []model.ActionRecord(c.ActionsTaken)
	if actions == nil {
		actions = []model.ActionRecord{}
	}
	data := &dto.CheckInData{
		ID:              strconv.FormatInt(c.PublicID, 10),
		CheckInType:     string(c.CheckInType),
		TypeDisplayName: c.CheckInType.DisplayName(),
		Status:          string(c.Status),
		Date:            date,
		ScheduledTime:   c.ScheduledTime,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
		Summary:         c.Summary,
		TriggerContext:  c.TriggerContext,
		Insights:        c.Insights,
		ActionsTaken:    actions,
	}
	if c.ConversationRef != nil {
		data.ConversationRef = *c.ConversationRef
	}
	return data
}

// stringParam 从工具调用参数里取字符串，缺失或类型不符返回空串
func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// mapParam 从工具调用参数里取对象，缺失或类型不符返回 nil
func mapParam(params map[string]interface{}, key string) map[string]interface{} {
	if v, ok := params[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
