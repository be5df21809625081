// Package notify delivers customer notifications when an order is handed
// over. Delivery is best effort: callers record the outcome but never roll
// back the order change that triggered it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tableside/internal/config"
)

// ErrDisabled is returned by senders that are configured not to deliver.
var ErrDisabled = errors.New("notifications are disabled")

// Message carries the order details a notification is rendered from.
type Message struct {
	OrderID        string  `json:"orderId"`
	SequenceNumber int     `json:"sequenceNumber"`
	TotalAmount    float64 `json:"totalAmount"`
	CustomerName   string  `json:"customerName"`
	Phone          string  `json:"phoneNumber"`
}

// Text renders the SMS body. frontendURL may be empty.
func (m Message) Text(frontendURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your order #%03d has been delivered. Total: %.2f.", nameOr(m.CustomerName), m.SequenceNumber, m.TotalAmount)
	if frontendURL != "" {
		fmt.Fprintf(&b, " View it at %s/order/%s", strings.TrimRight(frontendURL, "/"), m.OrderID)
	}
	b.WriteString(" Thank you for dining with us.")
	return b.String()
}

func nameOr(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// Sender delivers a message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone string, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, phone string, msg Message) error

func (f SenderFunc) Send(ctx context.Context, phone string, msg Message) error {
	return f(ctx, phone, msg)
}

// New builds the sender selected by cfg.Provider. Senders holding a
// connection also implement io.Closer.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case "none":
		return disabled{}, nil
	case "", "log":
		return NewLogSender(logger), nil
	case "sms":
		if cfg.SMS.TestMode {
			logger.Info("sms test mode enabled, messages are only logged")
			return NewLogSender(logger), nil
		}
		return NewSMSGateway(cfg.SMS, cfg.FrontendURL, logger), nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQP, logger)
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka, logger), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}

type disabled struct{}

func (disabled) Send(context.Context, string, Message) error {
	return ErrDisabled
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "notify")}
}

func (s *LogSender) Send(ctx context.Context, phone string, msg Message) error {
	s.logger.InfoContext(ctx, "delivery notification",
		"phone", phone,
		"order_id", msg.OrderID,
		"sequence", msg.SequenceNumber,
		"total", msg.TotalAmount,
	)
	return nil
}
