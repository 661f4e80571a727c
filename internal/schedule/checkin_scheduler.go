package schedule

// 打卡调度器：按用户时区把每日三条固定打卡挂到当天日志下
// 全量扫描、Today 懒加载补齐和临时打卡创建共用同一套写入口

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/cache"
	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
	"DayPulse/pkg/snowflake"
	"DayPulse/utils"
)

var (
	schedulerOnce sync.Once
	schedulerInst *CheckInScheduler
)

const (
	sweepLockKey = "schedule:sweep"
	sweepLockTTL = 10 * time.Minute
)

// 存储依赖收窄成接口，排期逻辑可以脱离数据库测
type userStore interface {
	ListActive(ctx context.Context, afterID int64, limit int) ([]*model.User, error)
}

type checkInStore interface {
	Create(ctx context.Context, c *model.CheckIn) error
	EnsureFixed(ctx context.Context, c *model.CheckIn) (*model.CheckIn, bool, error)
}

type dailyLogStore interface {
	GetOrCreate(ctx context.Context, lg *model.DailyLog) (*model.DailyLog, bool, error)
}

// CheckInScheduler 打卡调度器
type CheckInScheduler struct {
	logger    *zap.Logger
	users     userStore
	checkIns  checkInStore
	dailyLogs dailyLogStore

	sweepRunning  bool
	sweepMu       sync.Mutex
	lastSweepTime time.Time
}

// GetScheduler 获取打卡调度器单例
func GetScheduler() *CheckInScheduler {
	schedulerOnce.Do(func() {
		schedulerInst = NewScheduler(repository.Users(), repository.CheckIns(), repository.DailyLogs())
	})
	return schedulerInst
}

// NewScheduler 用指定存储构建调度器
func NewScheduler(users userStore, checkIns checkInStore, dailyLogs dailyLogStore) *CheckInScheduler {
	return &CheckInScheduler{
		logger:    logger.Logger,
		users:     users,
		checkIns:  checkIns,
		dailyLogs: dailyLogs,
	}
}

// ScheduleDailyCheckIns 为单个用户补齐"今天"的固定打卡
//
// 重复调用幂等：某类型当天已存在（无论后来被完成还是跳过）就不再生成。
// 返回当天日志和本次新建的条数。
func (s *CheckInScheduler) ScheduleDailyCheckIns(ctx context.Context, user *model.User, now time.Time) (*model.DailyLog, int, error) {
	if user == nil || !user.IsActive() {
		return nil, 0, pkgerrors.UserUnavailable
	}

	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	return s.scheduleDay(ctx, user, loc, utils.DateOnly(now.In(loc)))
}

// CreateDynamicCheckIn 在指定时刻挂一条固定排期之外的打卡
//
// 挂靠的日历日取 at 在用户时区下的日期，触发上下文由调用方给全，
// 时间合法性（过去时刻等）也在调用方校验。
func (s *CheckInScheduler) CreateDynamicCheckIn(ctx context.Context, user *model.User, at time.Time, trigger model.TriggerContext) (*model.CheckIn, *model.DailyLog, error) {
	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	lg, err := s.ensureDailyLog(ctx, user, utils.DateOnly(at.In(loc)))
	if err != nil {
		return nil, nil, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate check-in id: %w", err)
	}

	scheduledAt := at
	c := &model.CheckIn{
		PublicID:       publicID,
		UserID:         user.ID,
		DailyLogID:     lg.ID,
		CheckInType:    model.CheckInTypeAdhoc,
		Status:         model.CheckInStatusScheduled,
		ScheduledTime:  &scheduledAt,
		TriggerContext: trigger,
	}
	if err := s.checkIns.Create(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("failed to create adhoc check-in: %w", err)
	}

	metrics.RecordCheckInScheduled(ctx, string(model.CheckInTypeAdhoc), trigger.Source)
	s.logger.Info("Dynamic check-in created",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("check_in_id", c.PublicID),
		zap.String("source", trigger.Source),
		zap.Time("scheduled_time", at),
	)
	return c, lg, nil
}

// SweepOnce 带 Redis 锁的全量排期入口，定时循环和手动触发都走这里
//
// 锁拿不到说明别的实例正在扫，直接返回 SweepInProgress。
func (s *CheckInScheduler) SweepOnce(ctx context.Context, now time.Time, date *time.Time) (*dto.SweepResultData, error) {
	acquired, err := cache.TryLock(ctx, sweepLockKey, sweepLockTTL)
	if err != nil {
		// Redis 不可用时退回进程内互斥，单实例部署不至于丢排期
		s.logger.Warn("Failed to acquire sweep lock, proceeding with local guard only", zap.Error(err))
	} else if !acquired {
		return nil, pkgerrors.SweepInProgress
	} else {
		defer func() {
			if err := cache.Unlock(ctx, sweepLockKey); err != nil {
				s.logger.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	return s.ScheduleForAllUsers(ctx, now, date)
}

// ScheduleForAllUsers 分页扫描活跃用户，逐个补齐固定打卡
//
// date 为空时各用户取本地"今天"；给定 date 时所有用户对齐到同一日历日，
// 用于手动补偿历史排期。单个用户失败记录在结果里，不中断整轮扫描。
func (s *CheckInScheduler) ScheduleForAllUsers(ctx context.Context, now time.Time, date *time.Time) (*dto.SweepResultData, error) {
	s.sweepMu.Lock()
	if s.sweepRunning {
		s.sweepMu.Unlock()
		s.logger.Info("Sweep already running in this process, skipping")
		return nil, pkgerrors.SweepInProgress
	}
	s.sweepRunning = true
	s.lastSweepTime = now
	s.sweepMu.Unlock()

	defer func() {
		s.sweepMu.Lock()
		s.sweepRunning = false
		s.sweepMu.Unlock()
	}()

	startTime := time.Now()
	s.logger.Info("Starting check-in schedule sweep", zap.Time("start_time", startTime))

	batchSize := config.Cfg.ScheduleBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	result := &dto.SweepResultData{Errors: make([]dto.SweepErrorItem, 0)}
	if date != nil {
		result.Date = date.Format("2006-01-02")
	}

	var afterID int64
	for {
		users, err := s.users.ListActive(ctx, afterID, batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list active users: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, user := range users {
			result.UsersProcessed++

			// 列表查询和状态变更之间有竞态，这里再挡一遍
			if !user.IsActive() {
				result.Errors = append(result.Errors, sweepError(user.PublicID, pkgerrors.UserUnavailable))
				continue
			}

			loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
			day := utils.DateOnly(now.In(loc))
			if date != nil {
				day = utils.DateOnly(*date)
			}

			_, created, err := s.scheduleDay(ctx, user, loc, day)
			if err != nil {
				s.logger.Error("Failed to schedule user check-ins",
					zap.Int64("user_id", user.PublicID),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, sweepError(user.PublicID, err))
				continue
			}
			result.Scheduled += created
		}

		afterID = users[len(users)-1].ID
		if len(users) < batchSize {
			break
		}
	}

	duration := time.Since(startTime)
	metrics.RecordSweep(ctx, duration.Seconds(), len(result.Errors))
	s.logger.Info("Check-in schedule sweep completed",
		zap.Duration("duration", duration),
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("error_count", len(result.Errors)),
	)
	return result, nil
}

// scheduleDay 在 loc 时区的日历日 day（UTC 零点归一）下补齐固定打卡
func (s *CheckInScheduler) scheduleDay(ctx context.Context, user *model.User, loc *time.Location, day time.Time) (*model.DailyLog, int, error) {
	lg, err := s.ensureDailyLog(ctx, user, day)
	if err != nil {
		return nil, 0, err
	}

	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	created := 0
	for _, checkInType := range model.FixedCheckInTypes {
		if checkInType == model.CheckInTypeMidday && !user.MiddayEnabled {
			continue
		}

		// 固定时刻先用用户设置，解析不动再退回全局默认
		timeStr := user.CheckInTimeFor(checkInType)
		scheduledAt, err := utils.ParseTime(timeStr, base)
		if err != nil {
			s.logger.Warn("Invalid user check-in time, falling back to default",
				zap.Int64("user_id", user.PublicID),
				zap.String("check_in_type", string(checkInType)),
				zap.String("time", timeStr),
			)
			scheduledAt, err = utils.ParseTime(defaultTimeFor(checkInType), base)
			if err != nil {
				return lg, created, fmt.Errorf("failed to resolve %s time: %w", checkInType, err)
			}
		}

		publicID, err := snowflake.NextID()
		if err != nil {
			return lg, created, fmt.Errorf("failed to generate check-in id: %w", err)
		}

		c := &model.CheckIn{
			PublicID:      publicID,
			UserID:        user.ID,
			DailyLogID:    lg.ID,
			CheckInType:   checkInType,
			Status:        model.CheckInStatusScheduled,
			ScheduledTime: &scheduledAt,
			TriggerContext: model.TriggerContext{
				Source: model.TriggerSourceScheduler,
				Reason: "daily_schedule",
			},
		}
		_, isNew, err := s.checkIns.EnsureFixed(ctx, c)
		if err != nil {
			return lg, created, fmt.Errorf("failed to ensure %s check-in: %w", checkInType, err)
		}
		if isNew {
			created++
			metrics.RecordCheckInScheduled(ctx, string(checkInType), model.TriggerSourceScheduler)
		}
	}

	if created > 0 {
		s.logger.Info("Scheduled daily check-ins",
			zap.Int64("user_id", user.PublicID),
			zap.String("log_date", lg.DateString()),
			zap.Int("created", created),
		)
	}
	return lg, created, nil
}

// ensureDailyLog 取或建某天的日志，未命中冲突时多生成的 public_id 直接丢弃
func (s *CheckInScheduler) ensureDailyLog(ctx context.Context, user *model.User, day time.Time) (*model.DailyLog, error) {
	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate daily log id: %w", err)
	}

	lg, _, err := s.dailyLogs.GetOrCreate(ctx, &model.DailyLog{
		PublicID: publicID,
		UserID:   user.ID,
		LogDate:  day,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create daily log: %w", err)
	}
	return lg, nil
}

// sweepError 把单个用户的排期失败折成结果里的错误项
func sweepError(userPublicID int64, err error) dto.SweepErrorItem {
	item := dto.SweepErrorItem{
		UserID: strconv.FormatInt(userPublicID, 10),
		Code:   pkgerrors.ScheduleFailed.Code,
		Reason: err.Error(),
	}
	var def pkgerrors.Definition
	if errors.As(err, &def) {
		item.Code = def.Code
		item.Reason = def.Message
	}
	return item
}

func defaultTimeFor(t model.CheckInType) string {
	switch t {
	case model.CheckInTypeMorning:
		return config.Cfg.CheckInMorningTime
	case model.CheckInTypeMidday:
		return config.Cfg.CheckInMiddayTime
	case model.CheckInTypeEvening:
		return config.Cfg.CheckInEveningTime
	default:
		return ""
	}
}
