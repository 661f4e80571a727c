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
	"gorm.io/datatypes"

	"DayPulse/config"
	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/snowflake"
	"DayPulse/utils"
)

const (
	defaultMomentListLimit = 50
	maxMomentListLimit     = 200
)

var (
	momentService *MomentService
	momentOnce    sync.Once
)

// Moment 获取瞬间记录服务单例
func Moment() *MomentService {
	momentOnce.Do(func() {
		momentService = &MomentService{}
	})
	return momentService
}

// MomentService 瞬间记录服务
type MomentService struct{}

// Create 用户手动记录一个瞬间
func (s *MomentService) Create(ctx context.Context, userPublicID int64, req *dto.CreateMomentRequest) (*dto.MomentData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	m, lg, err := s.createForUser(ctx, user, req, model.MomentSourceUser, nil)
	if err != nil {
		return nil, err
	}
	data := momentData(m, lg.DateString())
	return &data, nil
}

// createForUser 瞬间记录的共享创建路径
//
// 记录一律挂在"今天"（用户时区）的日志下，when_it_happened 只影响
// happened_at 的折算，不会把记录挂去别的日期。
func (s *MomentService) createForUser(ctx context.Context, user *model.User, req *dto.CreateMomentRequest, source model.MomentSource, checkInID *int64) (*model.Moment, *model.DailyLog, error) {
	what := strings.TrimSpace(req.WhatHappened)
	if what == "" {
		return nil, nil, pkgerrors.InvalidRequest
	}

	when := model.MomentWhen(strings.TrimSpace(req.WhenItHappened))
	if when == "" {
		when = model.MomentWhenJustNow
	}
	if !when.IsValid() {
		return nil, nil, pkgerrors.MomentWhenInvalid
	}

	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	now := time.Now().In(loc)

	lg, err := DailyLog().GetOrCreateForDate(ctx, user, now)
	if err != nil {
		return nil, nil, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate moment id: %w", err)
	}

	details := datatypes.JSONMap(req.Details)
	if details == nil {
		details = datatypes.JSONMap{}
	}

	m := &model.Moment{
		PublicID:       publicID,
		DailyLogID:     lg.ID,
		UserID:         user.ID,
		WhatHappened:   what,
		WhenItHappened: when,
		HowItFelt:      strings.TrimSpace(req.HowItFelt),
		HappenedAt:     happenedAtFor(when, now),
		Source:         source,
		CheckInID:      checkInID,
		Details:        details,
	}
	if err := repository.Moments().Create(ctx, m); err != nil {
		return nil, nil, fmt.Errorf("failed to create moment: %w", err)
	}

	logger.Logger.Info("Moment saved",
		zap.Int64("user_id", user.PublicID),
		zap.Int64("moment_id", m.PublicID),
		zap.String("source", string(source)),
		zap.String("when", string(when)))
	return m, lg, nil
}

// List 按日期列出瞬间记录，date 留空表示用户时区下的今天
func (s *MomentService) List(ctx context.Context, userPublicID int64, q *dto.MomentListQuery) (*dto.MomentListData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	loc := utils.LoadLocation(user.Timezone, config.Cfg.DefaultTimezone)
	date := utils.TodayIn(loc)
	if q.Date != "" {
		parsed, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return nil, pkgerrors.DateInvalid
		}
		date = utils.DateOnly(parsed)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultMomentListLimit
	}
	if limit > maxMomentListLimit {
		limit = maxMomentListLimit
	}

	lg, err := repository.DailyLogs().GetByUserAndDate(ctx, user.ID, date)
	if errors.Is(err, pkgerrors.DailyLogNotFound) {
		return &dto.MomentListData{
			Date:    date.Format("2006-01-02"),
			Moments: []dto.MomentData{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	moments, err := repository.Moments().ListByDailyLog(ctx, lg.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list moments: %w", err)
	}

	data := &dto.MomentListData{
		Date:    lg.DateString(),
		Moments: make([]dto.MomentData, 0, len(moments)),
	}
	for _, m := range moments {
		data.Moments = append(data.Moments, momentData(m, lg.DateString()))
	}
	return data, nil
}

// happenedAtFor 把时段枚举折算成当天（用户时区）的代表性时间点
func happenedAtFor(when model.MomentWhen, now time.Time) time.Time {
	hour := 0
	switch when {
	case model.MomentWhenMorning:
		hour = 9
	case model.MomentWhenAfternoon:
		hour = 15
	case model.MomentWhenEvening:
		hour = 20
	default:
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
}

// momentData 瞬间记录 DTO
func momentData(m *model.Moment, date string) dto.MomentData {
	return dto.MomentData{
		ID:             strconv.FormatInt(m.PublicID, 10),
		Date:           date,
		WhatHappened:   m.WhatHappened,
		WhenItHappened: string(m.WhenItHappened),
		HowItFelt:      m.HowItFelt,
		HappenedAt:     m.HappenedAt,
		Source:         string(m.Source),
		Details:        map[string]interface{}(m.Details),
	}
}
