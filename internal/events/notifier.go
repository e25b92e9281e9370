package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	AlertsExchange      = "alerts"
	emergencyRoutingKey = "alert.emergency."
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPNotifier publishes new emergencies to the alerts topic exchange with
// routing key alert.emergency.<type>.
type AMQPNotifier struct {
	ch publisher
}

func NewAMQPNotifier(ch *amqp091.Channel) (*AMQPNotifier, error) {
	err := ch.ExchangeDeclare(
		AlertsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare %s exchange: %w", AlertsExchange, err)
	}
	return &AMQPNotifier{ch: ch}, nil
}

func (n *AMQPNotifier) NotifyEmergency(ctx context.Context, e Emergency) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency: %w", err)
	}
	return n.ch.PublishWithContext(ctx,
		AlertsExchange,             // exchange
		emergencyRoutingKey+e.Type, // routing key
		false,                      // mandatory
		false,                      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		})
}
