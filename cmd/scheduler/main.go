package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/schedule"
	pkgdatabase "DayPulse/pkg/database"
	pkgerrors "DayPulse/pkg/errors"
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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
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
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 考虑与 worker 和 server 作区分
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	go runDailySweepLoop(ctx)
	go runNotifyDispatchLoop(ctx)

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runDailySweepLoop 每天固定时间执行一次全量排期
// 当前实现：每天本地时间 00:05 触发一次
func runDailySweepLoop(ctx context.Context) {
	s := schedule.GetScheduler()

	// 在 development 环境下，为了方便本地调试，将每日排期改为每 1 分钟执行一次
	if config.Cfg.Environment == "development" {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		logger.Logger.Info("Daily sweep loop running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx, s)
			}
		}
	}

	for {
		// 计算下一次运行时间（今天/明天的 00:05）
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location())
		if !next.After(now) {
			// 如果已经过了今天 00:05，则设置为明天
			next = next.Add(24 * time.Hour)
		}

		delay := time.Until(next)
		logger.Logger.Info("Scheduled next daily sweep run",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runSweep(ctx, s)
		}
	}
}

// runSweep 执行一轮排期，date 传 nil 表示各用户时区下的今天
func runSweep(ctx context.Context, s *schedule.CheckInScheduler) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := s.SweepOnce(runCtx, time.Now(), nil)
	if err != nil {
		if errors.Is(err, pkgerrors.SweepInProgress) {
			logger.Logger.Info("Sweep skipped, another instance is already running")
			return
		}
		logger.Logger.Error("Daily sweep run failed", zap.Error(err))
		return
	}

	logger.Logger.Info("Daily sweep run finished",
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("scheduled", result.Scheduled),
		zap.Int("errors", len(result.Errors)),
	)
}

// runNotifyDispatchLoop 周期性查询到点未通知的打卡并投递通知消息
// 轮询间隔由 NOTIFY_POLL_SECONDS 控制，默认 60 秒。
func runNotifyDispatchLoop(ctx context.Context) {
	d := schedule.GetDispatcher()

	interval := time.Duration(config.Cfg.NotifyPollSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("Notify dispatch loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			dispatched, err := d.DispatchDue(runCtx, time.Now())
			if err != nil {
				logger.Logger.Error("Notify dispatch run failed", zap.Error(err))
			} else if dispatched > 0 {
				logger.Logger.Info("Dispatched due check-in notifications", zap.Int("count", dispatched))
			}
			cancel()
		}
	}
}

// initTelemetry 初始化 OTLP 上报与指标，endpoint 未配置时保持 noop Provider
func initTelemetry(ctx context.Context) func(context.Context) error {
	var shutdown func(context.Context) error

	if config.Cfg.OTLPEndpoint != "" {
		var err error
		shutdown, err = otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName + "-scheduler",
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
