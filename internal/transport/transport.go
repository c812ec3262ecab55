// Package transport provides the outbound message capability consumed by
// the delivery dispatcher. Implementations exist for SMTP email and an
// HTTP SMS gateway, plus a mock for tests.
package transport

import "context"

// EmailSender sends a rendered email to a single address.
type EmailSender interface {
	// SendEmail returns the provider's message ID on acceptance.
	SendEmail(ctx context.Context, address, subject, body string) (string, error)
}

// SMSSender sends a rendered text message to a single phone number.
type SMSSender interface {
	// SendSMS returns the provider's message ID on acceptance.
	SendSMS(ctx context.Context, phoneNumber, body string) (string, error)
}
