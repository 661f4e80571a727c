package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DayPulse/internal/model"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/snowflake"
	"DayPulse/storage/mq"
)

// 收尾打卡完成到日报汇总之间的缓冲，等并发中的其它完成请求落库
const daySummarySettleDelay = 30 * time.Second

// PublishCheckInNotify 发布打卡提醒消息
func PublishCheckInNotify(ctx context.Context, msg model.CheckInNotifyMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("check_in_id", msg.CheckInID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ci_notify_%d", id)
	}

	err := mq.PublishMessage(
		ctx,
		mq.ExchangeDirect,     // exchange
		mq.QueueCheckInNotify, // routing key
		msg,                   // body
	)

	if err != nil {
		logger.Logger.Error("Failed to publish check-in notify message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("check_in_id", msg.CheckInID),
			zap.Int64("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published check-in notify message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("check_in_id", msg.CheckInID),
		zap.Int64("user_id", msg.UserID),
		zap.String("check_in_type", msg.CheckInType),
	)

	return nil
}

// PublishDaySummary 发布日报汇总消息（延迟消息）
//
// 带一小段固定延迟再进 worker，收尾打卡完成的瞬间可能还有并发的
// complete 请求在落库，延迟后汇总能把它们也收进日报。
func PublishDaySummary(ctx context.Context, msg model.DaySummaryMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("daily_log_id", msg.DailyLogID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("day_summary_%d", id)
	}

	err := mq.PublishDelayedMessage(
		ctx,
		mq.ExchangeDelayed,    // exchange
		mq.QueueDaySummary,    // routing key
		daySummarySettleDelay, // delay
		msg,                   // body
	)

	if err != nil {
		logger.Logger.Error("Failed to publish day summary message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("daily_log_id", msg.DailyLogID),
			zap.Int64("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published day summary message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("daily_log_id", msg.DailyLogID),
		zap.String("log_date", msg.LogDate),
		zap.Duration("delay", daySummarySettleDelay),
	)

	return nil
}
