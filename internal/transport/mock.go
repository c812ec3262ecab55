package transport

import (
	"context"
	"fmt"
	"sync"
)

// MockSender implements both EmailSender and SMSSender for tests and for
// local development without live providers. Failures can be injected per
// destination address.
type MockSender struct {
	mu sync.Mutex

	// FailFor maps an address or phone number to the error returned when
	// sending to it. Destinations not in the map succeed.
	FailFor map[string]error

	// Delay, when set, is waited per send unless the context expires first.
	Delay func(ctx context.Context) error

	Emails []MockEmail
	Texts  []MockText

	nextID int
}

// MockEmail records one captured email send.
type MockEmail struct {
	Address string
	Subject string
	Body    string
}

// MockText records one captured SMS send.
type MockText struct {
	PhoneNumber string
	Body        string
}

var (
	_ EmailSender = (*MockSender)(nil)
	_ SMSSender   = (*MockSender)(nil)
)

// NewMockSender creates an empty mock transport.
func NewMockSender() *MockSender {
	return &MockSender{FailFor: make(map[string]error)}
}

// SendEmail captures the email, honoring injected failures and delay.
func (m *MockSender) SendEmail(ctx context.Context, address, subject, body string) (string, error) {
	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[address]; ok {
		return "", err
	}

	m.Emails = append(m.Emails, MockEmail{Address: address, Subject: subject, Body: body})
	m.nextID++
	return fmt.Sprintf("mock-email-%d", m.nextID), nil
}

// SendSMS captures the text, honoring injected failures and delay.
func (m *MockSender) SendSMS(ctx context.Context, phoneNumber, body string) (string, error) {
	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[phoneNumber]; ok {
		return "", err
	}

	m.Texts = append(m.Texts, MockText{PhoneNumber: phoneNumber, Body: body})
	m.nextID++
	return fmt.Sprintf("mock-sms-%d", m.nextID), nil
}

// SentCount returns total captured sends across both channels.
func (m *MockSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails) + len(m.Texts)
}
