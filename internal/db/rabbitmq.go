package db

import (
	"fmt"
	"log"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/config"

	"github.com/rabbitmq/amqp091-go"
)

const rabbitAttempts = 3

// ConnectRabbitMQ dials the broker used to fan out emergency alerts.
func ConnectRabbitMQ(cfg config.Config) (*amqp091.Connection, *amqp091.Channel, error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil, fmt.Errorf("rabbitmq url not configured")
	}

	var err error
	for i := 0; i < rabbitAttempts; i++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(cfg.RabbitMQURL)
		if err == nil {
			var ch *amqp091.Channel
			ch, err = conn.Channel()
			if err == nil {
				return conn, ch, nil
			}
			_ = conn.Close()
		}
		log.Printf("rabbitmq not ready, retrying... (%d/%d)", i+1, rabbitAttempts)
		time.Sleep(2 * time.Second)
	}
	return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
}
