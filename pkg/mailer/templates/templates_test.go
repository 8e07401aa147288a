package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEntryConfirmation(t *testing.T) {
	starts := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	subject, text, html, err := Render(EntryConfirmation, EntryData{
		PersonName:   "Ana <b>",
		EventName:    "Go Meetup",
		Location:     "Lisbon",
		StartsAt:     starts,
		RegisteredAt: starts.Add(-48 * time.Hour),
		EntryID:      7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration confirmed: Go Meetup", subject)
	assert.Contains(t, text, "Hello Ana <b>,")
	assert.Contains(t, text, "Location: Lisbon")
	assert.Contains(t, text, "01 March 2026, 18:00 UTC")
	assert.Contains(t, text, "sape")
	assert.Contains(t, html, "Ana &lt;b&gt;")
	assert.Contains(t, html, "#7")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestDefaultFn(t *testing.T) {
	assert.Equal(t, "x", defaultFn("x", ""))
	assert.Equal(t, "x", defaultFn("x", nil))
	assert.Equal(t, "x", defaultFn("x", 0))
	assert.Equal(t, 3, defaultFn("x", 3))
}
