// Package mailer delivers campaign email through the firm's SMTP relay.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers one message to a list of recipients.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender relays through a plain SMTP endpoint. The relay is internal and
// pre-authorized by network, so no SASL handshake is attempted.
type SMTPSender struct {
	addr string // host:port
	from string
}

// NewSMTPSender builds a relay sender.
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

// Send relays one message. An unconfigured relay is a configuration error.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if s.addr == "" || s.from == "" {
		return fmt.Errorf("smtp relay is not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(s.addr, nil, s.from, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("relay message: %w", err)
	}
	return nil
}
