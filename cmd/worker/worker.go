package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	otelapi "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/queue"
	"DayPulse/internal/service"
	pkgdatabase "DayPulse/pkg/database"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
	pkgmq "DayPulse/pkg/mq"
	"DayPulse/pkg/otel"
	pkgredis "DayPulse/pkg/redis"
	"DayPulse/pkg/snowflake"
	"DayPulse/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	otelShutdown := initTelemetry(ctx)
	if otelShutdown != nil {
		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// 初始化 Snowflake ， 根据 传入的 machinID 来初始化最好，考虑是否要单独启用环境配置
	// 考虑之后循环启动不同的 snowflakeID
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 消费者回调依赖这两个服务，启动前注入避免 queue 包反向引用 service
	queue.SetNotificationService(service.Notification())
	queue.SetDailyLogService(service.DailyLog())

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	//启动所有的消费者部分
	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}

// initTelemetry 初始化 OTLP 上报与指标，endpoint 未配置时保持 noop Provider
func initTelemetry(ctx context.Context) func(context.Context) error {
	var shutdown func(context.Context) error

	if config.Cfg.OTLPEndpoint != "" {
		var err error
		shutdown, err = otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName + "-worker",
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTLPEndpoint,
			SampleRatio:  config.Cfg.OTLPSampleRatio,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, continuing without export", zap.Error(err))
		}
	}

	meter := otelapi.Meter(config.Cfg.ServiceName)
	if err := pkgdatabase.InitDatabaseMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	if err := pkgredis.InitRedisMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize Redis metrics", zap.Error(err))
	}
	if err := pkgmq.InitMQMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize MQ metrics", zap.Error(err))
	}
	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Fatal("Failed to initialize application metrics", zap.Error(err))
	}

	return shutdown
}
