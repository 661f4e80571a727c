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
	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/queue"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
	"DayPulse/pkg/snowflake"
	"DayPulse/utils"
)

var (
	dailyLogService *DailyLogService
	dailyLogOnce    sync.Once
)

// DailyLog 获取日志服务单例
func DailyLog() *DailyLogService {
	dailyLogOnce.Do(func() {
		dailyLogService = &DailyLogService{}
	})
	return dailyLogService
}

// DailyLogService 日志服务，聚合当日打卡与情绪
type DailyLogService struct{}

// GetOrCreateForDate 取或建某用户某天的日志
//
// 并发安全由仓储的 ON CONFLICT DO NOTHING 保证，未命中冲突时多生成的
// public_id 直接丢弃。
func (s *DailyLogService) GetOrCreateForDate(ctx context.Context, user *model.User, date time.Time) (*model.DailyLog, error) {
	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate daily log id: %w", err)
	}

	lg, created, err := repository.DailyLogs().GetOrCreate(ctx, &model.DailyLog{
		PublicID: publicID,
		UserID:   user.ID,
		LogDate:  utils.DateOnly(date),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create daily log: %w", err)
	}
	if created {
		logger.Logger.Info("Daily log created",
			zap.Int64("user_id", user.PublicID),
			zap.String("log_date", lg.DateString()))
	}
	return lg, nil
}

// GetToday 返回用户"今天"的日志详情，不存在时自动创建
//
// "今天"按用户时区折算，跨时区用户各自对齐本地日历日。
func (s *DailyLogService) GetToday(ctx context.Context, userPublicID int64) (*dto.DailyLogData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	lg, err := s.GetOrCreateForDate(ctx, user, utils.TodayIn(loc))
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, lg)
}

// GetByDate 按日期返回历史日志详情，只读不补建
func (s *DailyLogService) GetByDate(ctx context.Context, userPublicID int64, dateStr string) (*dto.DailyLogData, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, pkgerrors.DateInvalid
	}

	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	lg, err := repository.DailyLogs().GetByUserAndDate(ctx, user.ID, utils.DateOnly(date))
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, lg)
}

// assemble 组装日志详情 DTO，携带当日打卡列表与情绪强度
func (s *DailyLogService) assemble(ctx context.Context, lg *model.DailyLog) (*dto.DailyLogData, error) {
	checkIns, err := repository.CheckIns().ListByDailyLog(ctx, lg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	emotions, err := repository.DailyLogs().ListEmotions(ctx, lg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily log emotions: %w", err)
	}

	data := &dto.DailyLogData{
		ID:                 strconv.FormatInt(lg.PublicID, 10),
		Date:               lg.DateString(),
		IsCompleted:        lg.IsCompleted,
		DaySummary:         lg.DaySummary,
		SummaryGeneratedAt: lg.SummaryGeneratedAt,
		CheckIns:           make([]dto.CheckInListItem, 0, len(checkIns)),
		Emotions:           make([]dto.EmotionIntensityItem, 0, len(emotions)),
	}
	for _, c := range checkIns {
		data.CheckIns = append(data.CheckIns, checkInListItem(c))
	}
	for _, rec := range emotions {
		item := dto.EmotionIntensityItem{Intensity: rec.Intensity}
		if rec.Emotion != nil {
			item.Emotion = rec.Emotion.Name
			item.Emoji = rec.Emotion.Emoji
		}
		data.Emotions = append(data.Emotions, item)
	}
	return data, nil
}

// ApplyCompletion 打卡完成后的聚合写入
//
// 情绪强度落表、收尾打卡置位日志并发布日报消息。这些都在状态转换
// 之后执行，失败只记日志不影响主流程。
func (s *DailyLogService) ApplyCompletion(ctx context.Context, user *model.User, c *model.CheckIn) {
	lg, err := repository.DailyLogs().GetByID(ctx, c.DailyLogID)
	if err != nil {
		logger.Logger.Error("Failed to load daily log after check-in completion",
			zap.Int64("check_in_id", c.PublicID),
			zap.Int64("daily_log_id", c.DailyLogID),
			zap.Error(err))
		return
	}

	for _, es := range c.Insights.Emotions {
		emotion, err := Emotion().Resolve(ctx, es.Emotion)
		if err != nil {
			// 字典外的情绪名不落表，留日志排查提取质量
			logger.Logger.Warn("Skipping emotion missing from catalog",
				zap.String("emotion", es.Emotion),
				zap.Int64("check_in_id", c.PublicID),
				zap.Error(err))
			continue
		}
		rec := &model.DailyLogEmotion{
			DailyLogID: lg.ID,
			EmotionID:  emotion.ID,
			Intensity:  clampIntensity(es.Intensity),
		}
		if err := repository.DailyLogs().UpsertEmotion(ctx, rec); err != nil {
			logger.Logger.Error("Failed to upsert daily log emotion",
				zap.String("emotion", emotion.Name),
				zap.Int64("daily_log_id", lg.ID),
				zap.Error(err))
		}
	}

	if c.CheckInType != closingCheckInType() {
		return
	}

	if err := repository.DailyLogs().MarkCompleted(ctx, lg.ID); err != nil {
		logger.Logger.Error("Failed to mark daily log completed",
			zap.Int64("daily_log_id", lg.ID),
			zap.Error(err))
	}

	// 延迟发布，等并发中的其他完成请求先落库再拼日报
	err = queue.PublishDaySummary(ctx, model.DaySummaryMessage{
		UserID:      user.PublicID,
		DailyLogID:  lg.PublicID,
		LogDate:     lg.DateString(),
		RequestedAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		logger.Logger.Error("Failed to publish day summary message",
			zap.Int64("user_id", user.PublicID),
			zap.String("log_date", lg.DateString()),
			zap.Error(err))
	}
}

// HandleDaySummary 日报消息的 worker 入口
//
// 延迟消息到达后重新读当日已完成的打卡拼日报写回，目标用户或日志
// 已不存在视为脏消息跳过。
func (s *DailyLogService) HandleDaySummary(ctx context.Context, msg model.DaySummaryMessage) error {
	date, err := time.Parse("2006-01-02", msg.LogDate)
	if err != nil {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("invalid log_date %q", msg.LogDate)}
	}

	user, err := repository.Users().GetByPublicID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, pkgerrors.UserNotFound) {
			return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("user %d not found", msg.UserID)}
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	lg, err := repository.DailyLogs().GetByUserAndDate(ctx, user.ID, utils.DateOnly(date))
	if err != nil {
		if errors.Is(err, pkgerrors.DailyLogNotFound) {
			return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("daily log %d not found", msg.DailyLogID)}
		}
		return fmt.Errorf("failed to load daily log: %w", err)
	}

	completed, err := repository.CheckIns().ListCompletedByDailyLog(ctx, lg.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to list completed check-ins: %w", err)
	}

	summary := ComposeDaySummary(completed)
	if err := repository.DailyLogs().SetDaySummary(ctx, lg.ID, summary, time.Now()); err != nil {
		return fmt.Errorf("failed to store day summary: %w", err)
	}

	metrics.RecordDaySummaryComposed(ctx)
	logger.Logger.Info("Day summary composed",
		zap.Int64("user_id", user.PublicID),
		zap.String("log_date", lg.DateString()),
		zap.Int("check_in_count", len(completed)))
	return nil
}

// ComposeDaySummary 从已完成打卡的总结拼日报文本
//
// 每段 "**类型名**: 总结"，按传入顺序拼接，空总结与未完成的跳过。
func ComposeDaySummary(checkIns []*model.CheckIn) string {
	parts := make([]string, 0, len(checkIns))
	for _, c := range checkIns {
		if c == nil || c.Status != model.CheckInStatusCompleted {
			continue
		}
		summary := strings.TrimSpace(c.Summary)
		if summary == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%s**: %s", c.CheckInType.DisplayName(), summary))
	}
	return strings.Join(parts, "\n\n")
}

// clampIntensity 把洞察里的情绪强度夹到 1-10，缺省按中位 5 处理
func clampIntensity(v int) int {
	if v <= 0 {
		return 5
	}
	if v > 10 {
		return 10
	}
	return v
}

// closingCheckInType 当日收尾的打卡类型，由配置指定
func closingCheckInType() model.CheckInType {
	return model.CheckInType(config.Cfg.CheckInClosingType)
}
