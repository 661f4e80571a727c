package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
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
	"DayPulse/pkg/snowflake"
	"DayPulse/pkg/token"
)

var (
	authService *AuthService
	authOnce    sync.Once
)

// Auth 获取认证服务单例
func Auth() *AuthService {
	authOnce.Do(func() {
		authService = &AuthService{}
	})
	return authService
}

// AuthService 认证服务
type AuthService struct{}

// Register 注册新用户并签发会话
//
// 打卡时刻用全局默认值初始化，注册完成即进入每日排期。
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthSessionData, error) {
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, pkgerrors.InvalidRequest
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = config.Cfg.DefaultTimezone
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, pkgerrors.UserTimezoneInvalid
	}

	var email *string
	if req.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Email))
		if normalized != "" {
			// 预检查重，并发撞上唯一索引时由建表约束兜底
			if _, err := repository.Users().GetByEmail(ctx, normalized); err == nil {
				return nil, pkgerrors.EmailAlreadyRegistered
			} else if err != pkgerrors.UserNotFound {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			email = &normalized
		}
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := &model.User{
		PublicID:      publicID,
		Nickname:      nickname,
		Email:         email,
		Status:        model.UserStatusActive,
		Timezone:      timezone,
		MorningTime:   config.Cfg.CheckInMorningTime,
		MiddayTime:    config.Cfg.CheckInMiddayTime,
		EveningTime:   config.Cfg.CheckInEveningTime,
		MiddayEnabled: true,
	}
	if err := repository.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Logger.Info("New user registered",
		zap.Int64("user_id", user.PublicID),
		zap.String("timezone", timezone),
	)
	return s.issueSession(ctx, user)
}

// RefreshToken 校验 refresh token 并轮换出新的令牌对
//
// Redis 里必须存在且和提交值一致，旧 token 即刻被新值覆盖失效。
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthSessionData, error) {
	userIDStr, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, pkgerrors.TokenInvalid
	}

	if !cache.ValidateRefreshTokenExists(ctx, userIDStr, refreshToken) {
		return nil, pkgerrors.TokenInvalid
	}

	userPublicID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return nil, pkgerrors.InvalidUserID
	}
	user, err := repository.Users().GetByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, err
	}
	if user.Status == model.UserStatusDeleted {
		return nil, pkgerrors.UserUnavailable
	}

	return s.issueSession(ctx, user)
}

// Logout 注销当前会话，refresh token 立即失效
func (s *AuthService) Logout(ctx context.Context, userPublicID int64) error {
	userIDStr := strconv.FormatInt(userPublicID, 10)
	if err := cache.DeleteRefreshToken(ctx, userIDStr); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	logger.Logger.Info("User logged out",
		zap.Int64("user_id", userPublicID),
	)
	return nil
}

// issueSession 签发令牌对并把 refresh token 落到 Redis
func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*dto.AuthSessionData, error) {
	userIDStr := strconv.FormatInt(user.PublicID, 10)
	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// 存储失败只降级告警，token 本身已经签出
	if err := cache.SetRefreshToken(ctx, userIDStr, refreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token in Redis",
			zap.String("user_id", userIDStr),
			zap.Error(err),
		)
	}

	return &dto.AuthSessionData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		User:         *profileData(user),
	}, nil
}
