package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName   = "gmail.events"
	connectionName = "prsummarizer-worker"
	heartbeat      = 10 * time.Second
)

// NewConnection dials RabbitMQ with a named connection so the worker shows up
// in the management UI.
func NewConnection(url string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// openChannel dials, opens one channel and declares the events exchange.
// On error nothing is left open.
func openChannel(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, ch, nil
}

func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil)
}
