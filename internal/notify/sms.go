package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tableside/internal/config"
)

// SMSGateway sends messages through an HTTP GET gateway that takes its
// arguments as query parameters.
type SMSGateway struct {
	cfg         config.SMSConfig
	frontendURL string
	client      *http.Client
	logger      *slog.Logger
}

func NewSMSGateway(cfg config.SMSConfig, frontendURL string, logger *slog.Logger) *SMSGateway {
	return &SMSGateway{
		cfg:         cfg,
		frontendURL: frontendURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger.With("component", "sms"),
	}
}

func (g *SMSGateway) Send(ctx context.Context, phone string, msg Message) error {
	if phone == "" || msg.OrderID == "" {
		return fmt.Errorf("phone number and order id are required")
	}

	endpoint, err := url.Parse(g.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("parse sms api url: %w", err)
	}
	q := endpoint.Query()
	q.Set("apikey", g.cfg.APIKey)
	q.Set("sender", g.cfg.SenderID)
	q.Set("number", phone)
	q.Set("message", msg.Text(g.frontendURL))
	q.Set("templateid", g.cfg.TemplateID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.ErrorContext(ctx, "sms request failed", "order_id", msg.OrderID, "error", err)
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		g.logger.ErrorContext(ctx, "sms gateway rejected request",
			"order_id", msg.OrderID, "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}

	g.logger.InfoContext(ctx, "sms sent", "order_id", msg.OrderID, "sender", g.cfg.SenderID)
	return nil
}
