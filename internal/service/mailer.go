// Package service holds the long-running glue: alert fan-out, email
// delivery and the periodic group scanner.
package service

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/user/groupwatch/internal/biz/domain"
)

// Mailer delivers one alert email through a sink's own account.
type Mailer interface {
	Send(sink domain.EmailAccount, subject, body string) error
}

// SMTPMailer sends through a single SMTP endpoint, authenticating as
// each sink. Sender and recipient are the same address: each sink
// mails itself.
type SMTPMailer struct {
	Host string
	Port int
}

// NewSMTPMailer creates a mailer for the SMTP endpoint.
func NewSMTPMailer(host string, port int) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port}
}

// Send delivers the alert email for one sink.
func (m *SMTPMailer) Send(sink domain.EmailAccount, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", sink.User)
	msg.SetHeader("To", sink.User)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Host, m.Port, sink.User, sink.Pass)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
