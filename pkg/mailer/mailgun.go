package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun delivers messages through the Mailgun API. Tags are attached to
// every message so deliveries can be filtered in the Mailgun dashboard.
type Mailgun struct {
	Domain  string
	Sender  string
	Tags    []string
	Timeout time.Duration
	client  *mg.MailgunImpl
}

func NewMailgun(domain, apiKey, sender string, tags ...string) *Mailgun {
	return &Mailgun{Domain: domain, Sender: sender, Tags: tags, Timeout: 10 * time.Second, client: mg.NewMailgun(domain, apiKey)}
}

// Send sends an email via Mailgun. html is optional; if provided it will be used as HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if len(m.Tags) > 0 {
		if err := msg.AddTag(m.Tags...); err != nil {
			return fmt.Errorf("mailgun tags: %w", err)
		}
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}

var _ Sender = (*Mailgun)(nil)
