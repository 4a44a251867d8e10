// Package mail sends transactional email. Delivery is best-effort by
// contract: callers dispatch through notify and never treat a send failure
// as fatal.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender configures a sender for the given relay. Username may be
// empty for relays that accept unauthenticated local delivery.
func NewSMTPSender(host string, port int, from, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg.String()))
}

// Disabled is a Sender that silently drops every message. Used when no SMTP
// relay is configured, typically in development.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, to, subject, html string) error { return nil }
