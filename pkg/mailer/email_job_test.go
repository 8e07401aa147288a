package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/pkg/mailer/templates"
)

type recordingSender struct {
	to, subject, text, html string
}

func (r *recordingSender) Send(_ context.Context, to, subject, text, html string) error {
	r.to, r.subject, r.text, r.html = to, subject, text, html
	return nil
}

func TestEntryConfirmationDelivery(t *testing.T) {
	job, err := NewEntryConfirmation(templates.EntryData{
		PersonName: "Ana",
		Email:      "ana@example.com",
		EventName:  "Go Meetup",
		StartsAt:   time.Now(),
		EntryID:    1,
	})
	require.NoError(t, err)

	s := &recordingSender{}
	require.NoError(t, Deliver(context.Background(), s, job))
	assert.Equal(t, "ana@example.com", s.to)
	assert.Equal(t, "Registration confirmed: Go Meetup", s.subject)
	assert.Contains(t, s.text, "Hello Ana")
	assert.NotEmpty(t, s.html)
}
