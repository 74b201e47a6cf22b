package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"

	"prsummarizer/pkg/otel"
)

const DLQExchangeName = "gmail.events.dlq"

// DLQQueueName 每个 routing key 一个死信队列
func DLQQueueName(routingKey string) string {
	return routingKey + ".dlq"
}

func declareDLQ(ch *amqp091.Channel, routingKey string) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	q, err := ch.QueueDeclare(DLQQueueName(routingKey), true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, DLQExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return nil
}

func dlqHeaders(originalError string, failedAt time.Time) amqp091.Table {
	return amqp091.Table{
		"x-original-error": originalError,
		"x-failed-by":      connectionName,
		"x-failed-at":      failedAt.UTC().Format(time.RFC3339),
	}
}

// PublishToDLQ stores the untouched notification body with the reason it was
// rejected.
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error {
	return p.publish(ctx, DLQExchangeName, routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp091.Persistent,
		Headers:      dlqHeaders(originalError, p.now()),
	})
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	headers, span := otel.MQPublishSpan(ctx, msg.Headers, exchange, routingKey)
	defer span.End()
	msg.Headers = headers

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}
