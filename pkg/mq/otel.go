package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// RabbitMQ 相关指标
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
	mqPublishErrors   metric.Int64Counter
	mqConsumeErrors   metric.Int64Counter
)

// InitMQMetrics 初始化 RabbitMQ 指标
func InitMQMetrics(meter metric.Meter) error {
	var err error

	mqMessagesTotal, err = meter.Int64Counter(
		"mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	mqMessageDuration, err = meter.Float64Histogram(
		"mq.message.duration",
		metric.WithDescription("RabbitMQ message processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	mqPublishErrors, err = meter.Int64Counter(
		"mq.publish.errors",
		metric.WithDescription("Number of RabbitMQ publish errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mqConsumeErrors, err = meter.Int64Counter(
		"mq.consume.errors",
		metric.WithDescription("Number of RabbitMQ consume errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier 接口
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}

// PublishWithTracing 发布消息并添加追踪：注入追踪上下文到消息头并记录指标
func PublishWithTracing(
	ctx context.Context,
	ch *amqp.Channel,
	serviceName, exchange, routingKey string,
	mandatory, immediate bool,
	msg amqp.Publishing,
) error {
	tracer := otel.Tracer(serviceName + ".rabbitmq")
	propagators := otel.GetTextMapPropagator()

	startTime := time.Now()

	spanName := "rabbitmq.publish"
	if exchange != "" {
		spanName = "rabbitmq.publish." + exchange
	}

	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
			attribute.String("service.name", serviceName),
		),
	)
	defer span.End()

	headers := make(amqp.Table)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	propagators.Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ch.PublishWithContext(ctx, exchange, routingKey, mandatory, immediate, msg)
	duration := time.Since(startTime).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if mqPublishErrors != nil {
			mqPublishErrors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "Message published successfully")
	}

	recordMessage(ctx, "publish", exchange, routingKey, status, duration)

	return err
}

// StartConsumeSpan 为一条收到的消息开启处理 Span，提取消息头中传播的追踪上下文。
// 调用方负责 span.End()，并通过 RecordConsumeResult 上报处理结果。
func StartConsumeSpan(ctx context.Context, serviceName string, msg amqp.Delivery) (context.Context, trace.Span) {
	tracer := otel.Tracer(serviceName + ".rabbitmq")
	propagators := otel.GetTextMapPropagator()

	msgCtx := propagators.Extract(ctx, &MessageHeaderCarrier{Headers: msg.Headers})

	return tracer.Start(msgCtx, "rabbitmq.message.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.rabbitmq.exchange", msg.Exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(msg.RoutingKey),
			semconv.MessagingMessageID(msg.MessageId),
			attribute.String("service.name", serviceName),
		),
	)
}

// RecordConsumeResult 上报消息处理结果
func RecordConsumeResult(ctx context.Context, span trace.Span, msg amqp.Delivery, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if mqConsumeErrors != nil {
			mqConsumeErrors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "Message processed")
	}

	recordMessage(ctx, "consume", msg.Exchange, msg.RoutingKey, status, duration.Seconds())
}

// recordMessage 记录消息指标，未初始化时跳过
func recordMessage(ctx context.Context, operation, exchange, routingKey, status string, duration float64) {
	if mqMessagesTotal == nil || mqMessageDuration == nil {
		return
	}

	labels := []attribute.KeyValue{
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.rabbitmq.exchange", exchange),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("messaging.status", status),
	}

	mqMessagesTotal.Add(ctx, 1, metric.WithAttributes(labels...))
	mqMessageDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}
