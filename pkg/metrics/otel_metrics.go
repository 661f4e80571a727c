package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 打卡相关指标
	CheckInScheduledTotal metric.Int64Counter
	CheckInCompletedTotal metric.Int64Counter
	CheckInSkippedTotal   metric.Int64Counter

	// 批量调度指标
	SweepDuration        metric.Float64Histogram
	SweepUserErrorsTotal metric.Int64Counter

	// 通知派发指标
	NotificationDispatchedTotal metric.Int64Counter

	// 日志汇总指标
	DaySummaryComposedTotal metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("daypulse")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.CheckInScheduledTotal, err = meter.Int64Counter(
		"checkin_scheduled_total",
		metric.WithDescription("Total number of check-ins created"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		return err
	}

	metrics.CheckInCompletedTotal, err = meter.Int64Counter(
		"checkin_completed_total",
		metric.WithDescription("Total number of check-ins completed"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		return err
	}

	metrics.CheckInSkippedTotal, err = meter.Int64Counter(
		"checkin_skipped_total",
		metric.WithDescription("Total number of check-ins skipped"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		return err
	}

	metrics.SweepDuration, err = meter.Float64Histogram(
		"schedule_sweep_duration_seconds",
		metric.WithDescription("Time spent running the daily scheduling sweep"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.SweepUserErrorsTotal, err = meter.Int64Counter(
		"schedule_sweep_user_errors_total",
		metric.WithDescription("Per-user failures recorded during scheduling sweeps"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationDispatchedTotal, err = meter.Int64Counter(
		"notification_dispatched_total",
		metric.WithDescription("Check-in notifications handed off to the delivery queue"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	metrics.DaySummaryComposedTotal, err = meter.Int64Counter(
		"day_summary_composed_total",
		metric.WithDescription("Daily log summaries composed by the worker"),
		metric.WithUnit("{summary}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordCheckInScheduled 记录打卡创建
func RecordCheckInScheduled(ctx context.Context, checkInType, source string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.CheckInScheduledTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", checkInType),
			attribute.String("source", source),
		),
	)
}

// RecordCheckInCompleted 记录打卡完成
func RecordCheckInCompleted(ctx context.Context, checkInType string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.CheckInCompletedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", checkInType)),
	)
}

// RecordCheckInSkipped 记录打卡跳过
func RecordCheckInSkipped(ctx context.Context, checkInType string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.CheckInSkippedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", checkInType)),
	)
}

// RecordSweep 记录一次批量调度的耗时与错误数
func RecordSweep(ctx context.Context, durationSeconds float64, userErrors int) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.SweepDuration.Record(ctx, durationSeconds)
	if userErrors > 0 {
		m.SweepUserErrorsTotal.Add(ctx, int64(userErrors))
	}
}

// RecordNotificationDispatched 记录通知派发
func RecordNotificationDispatched(ctx context.Context, checkInType string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.NotificationDispatchedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", checkInType)),
	)
}

// RecordDaySummaryComposed 记录日志汇总完成
func RecordDaySummaryComposed(ctx context.Context) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.DaySummaryComposedTotal.Add(ctx, 1)
}
