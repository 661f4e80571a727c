package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/pkg/logger"
)

// 交换机与队列拓扑，Init 时幂等声明
const (
	ExchangeDirect  = "daypulse.direct"
	ExchangeDelayed = "daypulse.delayed"

	QueueCheckInNotify = "checkin.notify"
	QueueDaySummary    = "daylog.summarize"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()

		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			logger.Logger.Error("Failed to connect to RabbitMQ", zap.Error(connErr))
			return
		}

		ch, err := conn.Channel()
		if err != nil {
			connErr = fmt.Errorf("failed to open channel: %w", err)
			return
		}
		defer ch.Close()

		if connErr = declareTopology(ch); connErr != nil {
			logger.Logger.Error("Failed to declare MQ topology", zap.Error(connErr))
			return
		}

		logger.Logger.Info("RabbitMQ initialized successfully")
	})

	return connErr
}

// Connection 获取共享连接，publisher 和 consumer 各自开 channel
func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// declareTopology 声明交换机、队列和绑定
//
// 延迟交换机依赖 rabbitmq_delayed_message_exchange 插件，
// 没装插件时这里会报错，直接失败好过提醒静默丢失。
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeDirect,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeDirect, err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeDelayed,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeDelayed, err)
	}

	queues := []struct {
		name     string
		exchange string
	}{
		{QueueCheckInNotify, ExchangeDirect},
		{QueueDaySummary, ExchangeDelayed},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(
			q.name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}

		// routing key 直接用队列名
		if err := ch.QueueBind(q.name, q.name, q.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", q.name, q.exchange, err)
		}
	}

	return nil
}
