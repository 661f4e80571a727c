package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayPulse/internal/cache"
	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
)

// api 中的 user_id 一律是 public_id

var (
	userService *UserService
	userOnce    sync.Once
)

// User 获取用户服务单例
func User() *UserService {
	userOnce.Do(func() {
		userService = &UserService{}
	})
	return userService
}

// UserService 用户服务
type UserService struct{}

// GetProfile 获取用户资料与打卡设置
func (s *UserService) GetProfile(ctx context.Context, userPublicID int64) (*dto.UserProfileData, error) {
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	return profileData(user), nil
}

// UpdateSettings 局部更新用户设置，仅更新请求里出现的字段
//
// 设置是排期的输入，改动频率天然很低，按小时窗口限流挡住异常调用方。
// 更新成功后覆盖写设置缓存而非失效，worker 组装文案时不用回表。
func (s *UserService) UpdateSettings(ctx context.Context, userPublicID int64, req *dto.UpdateUserSettingsRequest) (*dto.UserProfileData, error) {
	allowed, err := cache.AllowSettingsUpdate(ctx, userPublicID)
	if err != nil {
		logger.Logger.Warn("Settings rate limit check failed",
			zap.Int64("user_id", userPublicID),
			zap.Error(err))
	}
	if !allowed {
		return nil, pkgerrors.RateLimited
	}

	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Nickname != nil {
		updates["nickname"] = strings.TrimSpace(*req.Nickname)
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, pkgerrors.UserTimezoneInvalid
		}
		updates["timezone"] = *req.Timezone
	}
	if req.MorningTime != nil {
		if !validCheckInTime(*req.MorningTime) {
			return nil, pkgerrors.InvalidRequest
		}
		updates["morning_time"] = *req.MorningTime
	}
	if req.MiddayTime != nil {
		if !validCheckInTime(*req.MiddayTime) {
			return nil, pkgerrors.InvalidRequest
		}
		updates["midday_time"] = *req.MiddayTime
	}
	if req.EveningTime != nil {
		if !validCheckInTime(*req.EveningTime) {
			return nil, pkgerrors.InvalidRequest
		}
		updates["evening_time"] = *req.EveningTime
	}
	if req.MiddayEnabled != nil {
		updates["midday_enabled"] = *req.MiddayEnabled
	}

	if len(updates) == 0 {
		return profileData(user), nil
	}

	if err := repository.Users().UpdateSettings(ctx, user.ID, updates); err != nil {
		return nil, fmt.Errorf("failed to update user settings: %w", err)
	}

	updated, err := repository.Users().GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query updated user: %w", err)
	}

	if err := cache.SetUserSettings(ctx, userPublicID, settingsSnapshotOf(updated)); err != nil {
		logger.Logger.Warn("Failed to refresh user settings cache",
			zap.Int64("user_id", userPublicID),
			zap.Error(err))
	}

	logger.Logger.Info("User settings updated",
		zap.Int64("user_id", userPublicID),
		zap.Any("updates", updates))

	return profileData(updated), nil
}

// SettingsSnapshot 读取用户设置快照，优先走缓存，未命中回源并回填
//
// worker 组装通知文案和排期器折算本地时间都走这里。
func (s *UserService) SettingsSnapshot(ctx context.Context, userPublicID int64) (*cache.UserSettingsCache, error) {
	snap, err := cache.GetUserSettings(ctx, userPublicID)
	if err != nil {
		logger.Logger.Warn("Failed to read user settings cache",
			zap.Int64("user_id", userPublicID),
			zap.Error(err))
	}
	if snap != nil {
		return snap, nil
	}

	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}

	snap = settingsSnapshotOf(user)
	if err := cache.SetUserSettings(ctx, userPublicID, snap); err != nil {
		logger.Logger.Warn("Failed to backfill user settings cache",
			zap.Int64("user_id", userPublicID),
			zap.Error(err))
	}
	return snap, nil
}

// validCheckInTime 校验 HH:MM:SS 时刻字符串
func validCheckInTime(v string) bool {
	_, err := time.Parse("15:04:05", v)
	return err == nil
}

// settingsSnapshotOf 从用户行构建设置缓存快照
func settingsSnapshotOf(u *model.User) *cache.UserSettingsCache {
	return &cache.UserSettingsCache{
		Nickname:      u.Nickname,
		Status:        string(u.Status),
		Timezone:      u.Timezone,
		MorningTime:   u.MorningTime,
		MiddayTime:    u.MiddayTime,
		EveningTime:   u.EveningTime,
		MiddayEnabled: u.MiddayEnabled,
		UpdatedAt:     u.UpdatedAt.Unix(),
	}
}

// profileData 用户资料 DTO
func profileData(u *model.User) *dto.UserProfileData {
	data := &dto.UserProfileData{
		ID:       strconv.FormatInt(u.PublicID, 10),
		Nickname: u.Nickname,
		Status:   string(u.Status),
		Settings: dto.UserSettingsDTO{
			Timezone:      u.Timezone,
			MorningTime:   u.MorningTime,
			MiddayTime:    u.MiddayTime,
			EveningTime:   u.EveningTime,
			MiddayEnabled: u.MiddayEnabled,
		},
	}
	if u.Email != nil {
		data.Email = *u.Email
	}
	return data
}
