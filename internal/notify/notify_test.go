package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	to, subject, html, text string
	err                     error
	calls                   int
}

func (f *fakeTransport) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	f.calls++
	f.to, f.subject, f.html, f.text = to, subject, htmlBody, textBody
	return f.err
}

func TestDispatchNoopWithoutRecipient(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, zerolog.Nop())

	err := d.Dispatch(context.Background(), Alert{OrgID: "org-1", Event: models.Event{Title: "x"}})
	require.NoError(t, err)
	assert.Zero(t, ft.calls, "no recipient means no send attempt")
}

func TestDispatchNoopWithNilTransport(t *testing.T) {
	d := NewDispatcher(nil, zerolog.Nop())
	err := d.Dispatch(context.Background(), Alert{Recipient: "ops@example.org", Event: models.Event{Title: "x"}})
	assert.NoError(t, err)
}

func TestDispatchRendersAndSends(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, zerolog.Nop())

	alert := Alert{
		OrgID:     "org-1",
		Recipient: "ops@example.org",
		Reason:    "high priority protest",
		Event: models.Event{
			Title:         "Protest in Brussels",
			Summary:       "Demonstrators gathered downtown.",
			PriorityScore: 0.82,
			Sentiment:     models.SentimentNegative,
			URL:           "https://news.example/1",
		},
	}
	require.NoError(t, d.Dispatch(context.Background(), alert))

	assert.Equal(t, 1, ft.calls)
	assert.Equal(t, "ops@example.org", ft.to)
	assert.Contains(t, ft.subject, "Protest in Brussels")
	assert.Contains(t, ft.html, "Protest in Brussels")
	assert.Contains(t, ft.html, "high priority protest")
	assert.Contains(t, ft.text, "Demonstrators gathered downtown.")
}

func TestDispatchPropagatesTransportError(t *testing.T) {
	boom := errors.New("smtp down")
	ft := &fakeTransport{err: boom}
	d := NewDispatcher(ft, zerolog.Nop())

	err := d.Dispatch(context.Background(), Alert{Recipient: "ops@example.org", Event: models.Event{Title: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNoopTransportNeverErrors(t *testing.T) {
	assert.NoError(t, NoopTransport{}.Send(context.Background(), "a@b.com", "s", "h", "t"))
}
