package mq

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
	pkgmq "DayPulse/pkg/mq"
)

type MessageHandler func([]byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 阻塞消费指定队列直到 ctx 取消或通道关闭
//
// 处理失败 Nack 回队重试；SkipMessageError 视为终态，直接 Ack 丢弃。
func Consume(ctx context.Context, opts ConsumeOptions) error {
	conn := Connection()
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Consumer stopping",
				zap.String("queue", opts.Queue),
				zap.String("consumer_tag", opts.ConsumerTag),
			)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", opts.Queue)
			}

			msgCtx, span := pkgmq.StartConsumeSpan(ctx, config.Cfg.ServiceName, msg)
			start := time.Now()
			err := opts.Handler(msg.Body)
			pkgmq.RecordConsumeResult(msgCtx, span, msg, err, time.Since(start))
			span.End()

			if err != nil {
				if errors.IsSkipMessageError(err) {
					logger.Logger.Info("Skipping message",
						zap.String("queue", opts.Queue),
						zap.String("message_id", msg.MessageId),
						zap.Error(err),
					)
					msg.Ack(false)
					continue
				}

				logger.Logger.Error("Failed to process message",
					zap.String("queue", opts.Queue),
					zap.String("consumer_tag", opts.ConsumerTag),
					zap.Error(err),
				)
				msg.Nack(false, true) // requeue
				continue
			}

			msg.Ack(false)
		}
	}
}
