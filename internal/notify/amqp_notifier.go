package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Holds the config params for the notifier
type AMQPConfig struct {
	AMQPUri  string
	Exchange string

	// RoutingKey for run messages; a queue bound with the same key
	// receives them.
	RoutingKey string
}

type AMQPNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  AMQPConfig
}

// Connects to the AMQP broker and declares the exchange run messages are
// published to.
func NewAMQPNotifier(config AMQPConfig) (*AMQPNotifier, error) {
	if config.AMQPUri == "" {
		return nil, fmt.Errorf("AMQP URI cannot be empty in config")
	}
	if config.Exchange == "" {
		return nil, fmt.Errorf("AMQP exchange cannot be empty in config")
	}
	if config.RoutingKey == "" {
		return nil, fmt.Errorf("AMQP routing key cannot be empty in config")
	}

	n := &AMQPNotifier{config: config}

	var err error
	n.conn, err = amqp.Dial(config.AMQPUri)
	if err != nil {
		return nil, fmt.Errorf("AMQP - Connection to broker failed: %w", err)
	}

	n.channel, err = n.conn.Channel()
	if err != nil {
		n.conn.Close()
		return nil, fmt.Errorf("AMQP - Failed to open channel: %w", err)
	}

	err = n.channel.ExchangeDeclare(
		config.Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		n.channel.Close()
		n.conn.Close()
		return nil, fmt.Errorf("AMQP - Failed to declare exchange: %w", err)
	}

	return n, nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, msg RunMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("AMQP - Failed to marshal run message: %w", err)
	}

	err = n.channel.PublishWithContext(
		ctx,
		n.config.Exchange,
		n.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("AMQP - Failed to publish run message: %w", err)
	}

	return nil
}

// Gracefully closes channel and connection
func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			slog.Error("AMQP - Failed to close channel", "error", err)
		}
	}

	if n.conn != nil {
		if err := n.conn.Close(); err != nil {
			slog.Error("AMQP - Failed to close connection", "error", err)
		}
	}
}
