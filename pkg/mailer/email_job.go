package mailer

import (
	"context"

	"github.com/oksasatya/sape-server/pkg/mailer/templates"
)

// EmailJob is a rendered message ready for delivery.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Sender delivers a single message; Mailgun implements it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// NewEntryConfirmation renders the entry confirmation email for data.
func NewEntryConfirmation(data templates.EntryData) (EmailJob, error) {
	subject, text, html, err := templates.Render(templates.EntryConfirmation, data)
	if err != nil {
		return EmailJob{}, err
	}
	return EmailJob{To: data.Email, Subject: subject, Text: text, HTML: html}, nil
}

// Deliver sends job through s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	return s.Send(ctx, job.To, job.Subject, job.Text, job.HTML)
}
