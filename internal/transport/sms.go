package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// SMSGatewayConfig holds connection parameters for the HTTP SMS gateway.
type SMSGatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string // alphanumeric sender or long code shown to the recipient
}

// SMSGatewaySender implements SMSSender against a JSON HTTP gateway.
type SMSGatewaySender struct {
	client   *resty.Client
	senderID string
	logger   *slog.Logger
}

var _ SMSSender = (*SMSGatewaySender)(nil)

type smsSendRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type smsSendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NewSMSGatewaySender creates an SMS sender for the configured gateway.
func NewSMSGatewaySender(config SMSGatewayConfig, logger *slog.Logger) *SMSGatewaySender {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(config.APIKey).
		SetHeader("Content-Type", "application/json")

	return &SMSGatewaySender{
		client:   client,
		senderID: config.SenderID,
		logger:   logger,
	}
}

// SendSMS posts one message to the gateway and returns its message ID.
func (s *SMSGatewaySender) SendSMS(ctx context.Context, phoneNumber, body string) (string, error) {
	var result smsSendResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(smsSendRequest{
			From: s.senderID,
			To:   phoneNumber,
			Body: body,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v1/messages")
	if err != nil {
		s.logger.Error("sms: gateway request failed", "to", phoneNumber, "error", err)
		return "", fmt.Errorf("sms gateway request failed: %w", err)
	}

	if resp.IsError() {
		detail := result.Error
		if detail == "" {
			detail = resp.Status()
		}
		s.logger.Error("sms: gateway rejected message", "to", phoneNumber, "status", resp.StatusCode(), "detail", detail)
		return "", fmt.Errorf("sms gateway rejected message: %s", detail)
	}

	s.logger.Info("sms: message accepted", "to", phoneNumber, "message_id", result.MessageID)
	return result.MessageID, nil
}

// LogSMSSender is a development fallback that logs messages instead of
// sending them. Every message is reported as accepted.
type LogSMSSender struct {
	logger *slog.Logger
}

var _ SMSSender = (*LogSMSSender)(nil)

// NewLogSMSSender creates a logging SMS sender.
func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, phoneNumber, body string) (string, error) {
	id := fmt.Sprintf("log-%d", time.Now().UnixNano())
	s.logger.Info("sms: logged instead of sent", "to", phoneNumber, "body", body, "message_id", id)
	return id, nil
}
