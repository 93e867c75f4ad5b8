package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/campushub/complaint-desk-api/pkg/config"
)

// Mailer sends plain-text mail. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through a configured SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailer builds a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send composes and delivers a single message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NopMailer discards all messages. Used when SMTP is disabled.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(string, string, string) error { return nil }
