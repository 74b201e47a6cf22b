package otel

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func mqAttributes(kind, destination, routingKey string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", destination),
		attribute.String("messaging.destination_kind", kind),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
	)
}

// MQPublishSpan starts a producer span and writes its context into headers,
// which may be nil. The returned table must be sent with the message.
func MQPublishSpan(ctx context.Context, headers amqp091.Table, exchange, routingKey string) (amqp091.Table, trace.Span) {
	ctx, span := Tracer().Start(ctx, "mq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		mqAttributes("exchange", exchange, routingKey),
	)

	carrier := NewMQHeaderCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers, span
}

// MQConsumeSpan 从消息头中提取上游 trace context 后创建 consumer span
func MQConsumeSpan(ctx context.Context, headers amqp091.Table, queue, routingKey string) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, NewMQHeaderCarrier(headers))
	return Tracer().Start(ctx, "mq.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		mqAttributes("queue", queue, routingKey),
	)
}

// MQHeaderCarrier adapts an AMQP header table to a TextMapCarrier.
type MQHeaderCarrier struct {
	headers amqp091.Table
}

func NewMQHeaderCarrier(headers amqp091.Table) *MQHeaderCarrier {
	if headers == nil {
		headers = amqp091.Table{}
	}
	return &MQHeaderCarrier{headers: headers}
}

func (c *MQHeaderCarrier) Get(key string) string {
	if s, ok := c.headers[key].(string); ok {
		return s
	}
	return ""
}

func (c *MQHeaderCarrier) Set(key, value string) {
	c.headers[key] = value
}

func (c *MQHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for k := range c.headers {
		keys = append(keys, k)
	}
	return keys
}
