package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"

	"tableside/internal/config"
)

// envelope is the payload published to brokers; a downstream SMS worker
// consumes it.
type envelope struct {
	Phone   string    `json:"phoneNumber"`
	Message Message   `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// AMQPPublisher hands notifications to a RabbitMQ exchange.
type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewAMQPPublisher(cfg config.AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &AMQPPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "amqp"),
	}, nil
}

func (p *AMQPPublisher) Send(ctx context.Context, phone string, msg Message) error {
	if p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	body, err := json.Marshal(envelope{Phone: phone, Message: msg, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.logger.DebugContext(ctx, "notification published", "order_id", msg.OrderID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil && !p.ch.IsClosed() {
		if err := p.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

// KafkaPublisher writes notifications to a Kafka topic keyed by order id.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger.With("component", "kafka"),
	}
}

func (p *KafkaPublisher) Send(ctx context.Context, phone string, msg Message) error {
	data, err := json.Marshal(envelope{Phone: phone, Message: msg, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.OrderID), Value: data, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
