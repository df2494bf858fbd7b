package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails the confirmation directly.
type SMTPNotifier struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyRegistration(ctx context.Context, ev queue.RegistrationConfirmedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	msg := buildMessage(n.cfg.From, ev)
	if err := n.send(n.cfg.Addr(), auth, n.cfg.From, []string{ev.Email}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// headerSafe strips CR/LF so participant input cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func buildMessage(from string, ev queue.RegistrationConfirmedEvent) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerSafe(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe(ev.Email))
	fmt.Fprintf(&b, "Subject: Registration confirmed: %s\r\n", headerSafe(ev.EventName))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", ev.Name)
	fmt.Fprintf(&b, "You are registered for %s (%s).\r\n", ev.EventName, ev.EventType)
	fmt.Fprintf(&b, "Location: %s\r\n", ev.Location)
	fmt.Fprintf(&b, "Starts: %s\r\nEnds: %s\r\n", ev.StartsAt, ev.EndsAt)
	fmt.Fprintf(&b, "Ticket: %s\r\n", ev.Token)
	return []byte(b.String())
}
