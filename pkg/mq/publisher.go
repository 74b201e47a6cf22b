package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publisher 在多个 worker goroutine 之间共享，channel 不是并发安全的，所以加锁
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	mu      sync.Mutex
	now     func() time.Time
}

// NewPublisher also declares the DLQ bound to dlqRoutingKey so rejected
// notifications have somewhere to go before the first rejection.
func NewPublisher(url, dlqRoutingKey string) (*Publisher, error) {
	conn, ch, err := openChannel(url)
	if err != nil {
		return nil, err
	}

	if err := declareDLQ(ch, dlqRoutingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch, now: time.Now}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.channel != nil && !p.conn.IsClosed()
}

// Publish sends payload as JSON on the events exchange.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.publish(ctx, ExchangeName, routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    p.now().UTC(),
	})
}
