package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayPulse/internal/cache"
	"DayPulse/internal/model"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	"DayPulse/storage/mq"
)

// 消费侧不直接 import service，处理方在 worker 启动时注入，避免包环

// NotificationService 打卡提醒消息的处理方
type NotificationService interface {
	HandleCheckInNotify(ctx context.Context, msg model.CheckInNotifyMessage) error
}

// DailyLogService 日报汇总消息的处理方
type DailyLogService interface {
	HandleDaySummary(ctx context.Context, msg model.DaySummaryMessage) error
}

var (
	notificationService NotificationService
	dailyLogService     DailyLogService
)

// SetNotificationService 设置通知服务（worker 启动时调用）
func SetNotificationService(s NotificationService) {
	notificationService = s
}

// SetDailyLogService 设置日志服务（worker 启动时调用）
func SetDailyLogService(s DailyLogService) {
	dailyLogService = s
}

// StartCheckInNotifyConsumer 启动打卡提醒消费者
func StartCheckInNotifyConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.CheckInNotifyMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal check-in notify message: %w", err)
		}

		// SETNX 原子检查并标记消息正在处理
		acquired, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，任务表的 check_in_id 唯一索引兜底防重
		} else if !acquired {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("check_in_id", msg.CheckInID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		if notificationService == nil {
			logger.Logger.Error("NotificationService not initialized",
				zap.String("message_id", msg.MessageID),
			)
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("notification service not initialized")
		}

		logger.Logger.Info("Processing check-in notify message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("check_in_id", msg.CheckInID),
			zap.Int64("user_id", msg.UserID),
		)

		if err := notificationService.HandleCheckInNotify(ctx, msg); err != nil {
			// 终态明确的消息不再重试，标记已处理后跳过
			if errors.IsSkipMessageError(err) {
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark skipped message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return err
			}

			// 其他错误取消标记，允许重试
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to handle check-in notify: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueCheckInNotify,
		ConsumerTag:   "checkin_notify_consumer",
		PrefetchCount: 20,
		Handler:       handler,
	})
}

// StartDaySummaryConsumer 启动日报汇总消费者
func StartDaySummaryConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.DaySummaryMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal day summary message: %w", err)
		}

		acquired, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 日报汇总本身幂等（覆盖写），检查失败时继续处理
		} else if !acquired {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("daily_log_id", msg.DailyLogID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		if dailyLogService == nil {
			logger.Logger.Error("DailyLogService not initialized",
				zap.String("message_id", msg.MessageID),
			)
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("daily log service not initialized")
		}

		logger.Logger.Info("Processing day summary message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("user_id", msg.UserID),
			zap.String("log_date", msg.LogDate),
		)

		if err := dailyLogService.HandleDaySummary(ctx, msg); err != nil {
			if errors.IsSkipMessageError(err) {
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark skipped message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return err
			}

			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to handle day summary: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueDaySummary,
		ConsumerTag:   "day_summary_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartAllConsumers 启动所有消费者（worker 启动时调用）
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"checkin_notify", StartCheckInNotifyConsumer},
		{"day_summary", StartDaySummaryConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()

	logger.Logger.Info("All consumers started")
}
