package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string // sender address
	FromName string // optional sender display name
}

// SMTPEmailSender implements EmailSender over SMTP using go-mail.
type SMTPEmailSender struct {
	config SMTPConfig
	logger *slog.Logger
}

var _ EmailSender = (*SMTPEmailSender)(nil)

// NewSMTPEmailSender creates an SMTP email sender.
func NewSMTPEmailSender(config SMTPConfig, logger *slog.Logger) *SMTPEmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPEmailSender{config: config, logger: logger}
}

// SendEmail sends one plain-text email.
func (s *SMTPEmailSender) SendEmail(ctx context.Context, address, subject, body string) (string, error) {
	msg := mail.NewMsg()

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	if err := msg.From(from); err != nil {
		return "", fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(address); err != nil {
		return "", fmt.Errorf("invalid to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp: failed to send email", "to", address, "error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("smtp: email sent", "to", address, "subject", subject)

	// SMTP does not reliably surface a provider message ID.
	return fmt.Sprintf("smtp-%d", time.Now().UnixNano()), nil
}

// clientOptions returns go-mail client options based on configuration.
func (s *SMTPEmailSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	// TLS mode based on port (go-mail auto-detects, but we can be explicit)
	switch s.config.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		// Plain SMTP, or dev relays like Mailhog on 1025
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.config.Username != "" && s.config.Password != "" {
		opts = append(opts,
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	return opts
}
