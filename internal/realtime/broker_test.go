package realtime

import (
	"sync/atomic"
	"testing"

	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(f Filter) *client {
	return &client{send: make(chan Message, sendBufferSize), filter: f}
}

func TestAnyMatchCaseInsensitive(t *testing.T) {
	assert.True(t, anyMatch([]string{"Crime"}, []string{"crime"}))
	assert.False(t, anyMatch([]string{"crime"}, []string{"weather"}))
	assert.False(t, anyMatch(nil, []string{"crime"}))
}

// TestPublishFiltersByCategoryAndPriority pins the category and minimum-
// score filter: a subscription with {categories:["crime"],
// min_priority:0.7} must not receive a weather/high-priority event nor a
// crime/low-priority event, but must receive a crime/high-priority one.
// The broker compares the filter against priority_score; relevance_score
// is not consulted.
func TestPublishFiltersByCategoryAndPriority(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	c := newTestClient(Filter{Categories: []string{"crime"}, MinPriority: 0.7})
	b.clients[c] = struct{}{}

	weatherHighPriority := &models.Event{Category: models.CategoryWeather, PriorityScore: 0.9}
	b.PublishNewEvent(nil, weatherHighPriority)
	assertNoMessage(t, c)

	crimeLowPriority := &models.Event{Category: models.CategoryCrime, PriorityScore: 0.5}
	b.PublishNewEvent(nil, crimeLowPriority)
	assertNoMessage(t, c)

	crimeHighPriority := &models.Event{Category: models.CategoryCrime, PriorityScore: 0.8}
	b.PublishNewEvent(nil, crimeHighPriority)
	select {
	case msg := <-c.send:
		assert.Equal(t, MsgEventNew, msg.Type)
	default:
		t.Fatal("expected matching event to be delivered")
	}
}

func TestPublishAlertScopedToOrg(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	orgAClient := newTestClient(Filter{OrgID: "org-a"})
	orgBClient := newTestClient(Filter{OrgID: "org-b"})
	b.clients[orgAClient] = struct{}{}
	b.clients[orgBClient] = struct{}{}

	ev := &models.Event{Category: models.CategoryCrime, PriorityScore: 0.9}
	b.PublishAlertTriggered(nil, "org-a", ev, "threshold exceeded")

	select {
	case msg := <-orgAClient.send:
		assert.Equal(t, MsgAlertTriggered, msg.Type)
	default:
		t.Fatal("org-a client should have received the alert")
	}
	assertNoMessage(t, orgBClient)
}

func TestRemoveClosesSendChannel(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	c := newTestClient(Filter{})
	b.clients[c] = struct{}{}

	b.remove(c)
	_, ok := <-c.send
	assert.False(t, ok, "removed client's send channel must be closed")

	_, present := b.clients[c]
	require.False(t, present)
}

func TestWritePumpDisconnectsAfterMissedHeartbeats(t *testing.T) {
	c := newTestClient(Filter{})
	c.missedHeartbeats = maxMissedHeartbeats
	assert.Greater(t, atomic.AddInt32(&c.missedHeartbeats, 1), int32(maxMissedHeartbeats))
}

func assertNoMessage(t *testing.T, c *client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message delivered: %+v", msg)
	default:
	}
}
