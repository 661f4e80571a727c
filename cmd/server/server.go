package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	otelapi "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"DayPulse/config"
	"DayPulse/internal/middleware"
	"DayPulse/internal/router"
	"DayPulse/internal/service"
	pkgdatabase "DayPulse/pkg/database"
	"DayPulse/pkg/logger"
	"DayPulse/pkg/metrics"
	pkgmq "DayPulse/pkg/mq"
	"DayPulse/pkg/otel"
	pkgredis "DayPulse/pkg/redis"
	"DayPulse/pkg/snowflake"
	"DayPulse/pkg/token"
	"DayPulse/storage"
)

func main() {
	// 日志部分
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

	// OTel 要先于存储层就位，GORM/Redis/MQ 的埋点都挂在全局 Provider 上
	otelShutdown := initTelemetry(ctx)
	if otelShutdown != nil {
		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	// 初始化中间件
	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// 预热情绪目录，词表很小，整表常驻内存
	if err := service.Emotion().Load(ctx); err != nil {
		logger.Logger.Fatal("Failed to load emotion catalog", zap.Error(err))
	}

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	h := server.Default(server.WithHostPorts(addr))

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}

// initTelemetry 初始化 OTLP 上报与各层指标
//
// endpoint 未配置时不建导出器，此时全局 Provider 是 noop，
// 指标注册照常执行：HTTP 中间件直接持有这些 instrument，不能留 nil。
func initTelemetry(ctx context.Context) func(context.Context) error {
	var shutdown func(context.Context) error

	if config.Cfg.OTLPEndpoint != "" {
		var err error
		shutdown, err = otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName,
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTLPEndpoint,
			SampleRatio:  config.Cfg.OTLPSampleRatio,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, continuing without export", zap.Error(err))
		}
	} else {
		logger.Logger.Info("OTLP endpoint not configured, telemetry export disabled")
	}

	meter := otelapi.Meter(config.Cfg.ServiceName)
	if err := middleware.InitMetrics(meter); err != nil {
		logger.Logger.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}
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
