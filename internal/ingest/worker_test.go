package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAssignsDedupHash(t *testing.T) {
	item := RawItem{Title: "Protest in Brussels", URL: "https://news.example/1", PublishedAt: time.Now().UTC()}
	ev := Normalize("source-1", item)

	require.NotEmpty(t, ev.ID)
	assert.Equal(t, dedupHash(item.URL, item.Title), ev.DedupHash)
	assert.False(t, ev.ClockSkewFlag)
}

func TestNormalizeClampsFutureTimestamp(t *testing.T) {
	future := time.Now().UTC().Add(2 * time.Hour)
	item := RawItem{Title: "Scheduled announcement", URL: "https://news.example/2", PublishedAt: future}

	ev := Normalize("source-1", item)

	assert.True(t, ev.ClockSkewFlag)
	assert.WithinDuration(t, time.Now().UTC(), ev.PublishedAt, 5*time.Second)
}

func TestNormalizeToleratesSmallSkew(t *testing.T) {
	nearFuture := time.Now().UTC().Add(2 * time.Minute)
	item := RawItem{Title: "Just posted", URL: "https://news.example/3", PublishedAt: nearFuture}

	ev := Normalize("source-1", item)

	assert.False(t, ev.ClockSkewFlag, "skew within tolerance must not be clamped")
	assert.Equal(t, nearFuture, ev.PublishedAt)
}

func TestDedupHashIsCaseAndWhitespaceInsensitive(t *testing.T) {
	a := dedupHash("https://news.example/1", "Protest In Brussels")
	b := dedupHash("  https://news.example/1  ", "protest in brussels")
	assert.Equal(t, a, b)
}

func TestDedupHashDiffersOnDifferentURL(t *testing.T) {
	a := dedupHash("https://news.example/1", "Same Title")
	b := dedupHash("https://news.example/2", "Same Title")
	assert.NotEqual(t, a, b)
}

func TestNormalizeIsDeterministicExceptID(t *testing.T) {
	item := RawItem{Title: "Flooding reported", URL: "https://news.example/4", PublishedAt: time.Now().UTC().Add(-time.Hour)}
	a := Normalize("source-1", item)
	b := Normalize("source-1", item)

	assert.Equal(t, a.DedupHash, b.DedupHash)
	assert.Equal(t, a.PublishedAt, b.PublishedAt)
	assert.NotEqual(t, a.ID, b.ID, "each candidate gets a fresh surrogate id; dedup happens at the store layer")
}
