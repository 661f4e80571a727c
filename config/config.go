package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"daypulse"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"daypulse"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`
	// 只读副本 DSN，为空则不启用读写分离
	PostgreSQLReplicaDSN string `env:"POSTGRESQL_REPLICA_DSN"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"dp"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 用于签名 JWT，server 启动时校验
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// CSRF / Session 配置
	CSRFSecret    string `env:"CSRF_SECRET"`
	SessionSecret string `env:"SESSION_SECRET"`

	// 内部接口共享令牌（调度触发、通知任务拉取/回执）
	InternalToken string `env:"INTERNAL_TOKEN"`

	// 打卡调度配置，时间格式 HH:MM:SS，为用户本地时间
	CheckInMorningTime string `env:"CHECKIN_MORNING_TIME" envDefault:"08:00:00"`
	CheckInMiddayTime  string `env:"CHECKIN_MIDDAY_TIME" envDefault:"13:00:00"`
	CheckInEveningTime string `env:"CHECKIN_EVENING_TIME" envDefault:"20:00:00"`
	// 一天的收尾打卡类型，该类型完成后日志记为已完成
	CheckInClosingType string `env:"CHECKIN_CLOSING_TYPE" envDefault:"evening"`
	DefaultTimezone    string `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`
	// 批量调度每页处理的用户数
	ScheduleBatchSize int `env:"SCHEDULE_BATCH_SIZE" envDefault:"200"`
	// 通知派发轮询间隔（秒）
	NotifyPollSeconds int `env:"NOTIFY_POLL_SECONDS" envDefault:"60"`

	// 对话上下文模板文件路径，为空时使用内置模板
	PromptTemplatePath string `env:"PROMPT_TEMPLATE_PATH"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTLPSampleRatio float64 `env:"OTLP_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置，滑动窗口实现在中间件内
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		log.Printf("WARN: JWT_SECRET is not set, authenticated endpoints will reject all requests")
	}

	if Cfg.CSRFSecret == "" {
		log.Printf("WARN: CSRF_SECRET is not set, CSRF middleware cannot be enabled")
	}

	if Cfg.InternalToken == "" {
		log.Printf("WARN: INTERNAL_TOKEN is not set, internal endpoints will reject all requests")
	}

	if Cfg.CheckInClosingType != "morning" && Cfg.CheckInClosingType != "midday" && Cfg.CheckInClosingType != "evening" {
		log.Fatalf("CHECKIN_CLOSING_TYPE must be one of morning/midday/evening, got %q", Cfg.CheckInClosingType)
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
