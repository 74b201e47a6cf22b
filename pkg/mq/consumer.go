package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"prsummarizer/pkg/metrics"
	"prsummarizer/pkg/otel"
	"prsummarizer/pkg/trace"
)

const consumerTag = "prsummarizer-worker"

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key. prefetch bounds
// the number of unacknowledged deliveries and should match the worker count.
func NewConsumer(url, queueName, routingKey string, prefetch int, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := openChannel(url)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
		zap.Int("prefetch", prefetch),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// IsConnected reports whether the underlying AMQP connection is open.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Stop cancels the broker subscription. Deliveries already handed to workers
// are still processed and acknowledged before StartConsuming returns.
func (c *Consumer) Stop() {
	if c.channel == nil {
		return
	}
	if err := c.channel.Cancel(consumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer", zap.Error(err))
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts a bounded pool of workers, each handling one delivery
// at a time. It blocks until the subscription ends and all workers drain.
func (c *Consumer) StartConsuming(workers int) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}
	if workers < 1 {
		workers = 1
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		consumerTag,
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Int("workers", workers),
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for msg := range deliveries {
				c.handleDelivery(worker, msg)
			}
		}(i)
	}
	wg.Wait()

	c.logger.Info("Consumer stopped",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)
	return nil
}

// handleDelivery 保证每条消息都会被 ack 或 nack
func (c *Consumer) handleDelivery(worker int, msg amqp091.Delivery) {
	ctx, span := otel.MQConsumeSpan(context.Background(), msg.Headers, c.queue.Name, c.routingKey)
	defer span.End()

	// 上游带了 traceparent 时沿用它的 trace id，日志和 span 能对上
	if id := otel.TraceID(ctx); id != "" {
		ctx = trace.WithContext(ctx, id)
	} else {
		ctx = trace.Ensure(ctx)
	}
	start := time.Now()

	c.logger.Debug("Received message",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Int("worker", worker),
		zap.Int("message_size", len(msg.Body)),
		zap.String("trace_id", trace.FromContext(ctx)),
	)

	defer func() {
		metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	}()

	// Panic 恢复：确保即使 handler panic 也能正确处理消息
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Any("panic", r),
			)
			if err := msg.Nack(false, true); err != nil {
				c.logger.Error("Failed to nack message after panic",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			}
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "requeued")
		c.logger.Error("Handler error",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		// 业务失败 → 拒绝消息并重新入队，让 MQ 重试
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message",
				zap.String("routing_key", c.routingKey),
				zap.Error(err),
			)
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("Message processed successfully",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.Duration("took", time.Since(start)),
	)
}
