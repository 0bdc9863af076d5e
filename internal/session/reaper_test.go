package session

import (
	"context"
	"testing"
	"time"

	"offline-llm-be/pkg/events"
	"offline-llm-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.published = append(p.published, e)
	return nil
}

func TestSweepPurgesIdleSession(t *testing.T) {
	r := newTestRegistry(t)
	h := NewHistories()
	pub := &capturePublisher{}
	reaper := NewReaper(r, h, 60*time.Minute, time.Minute, noopLogger{}, pub)
	ctx := context.Background()

	err := r.AddPassages(ctx, "idle", []store.Passage{{Text: "hello", Source: "uploaded"}})
	assert.NoError(t, err)
	h.Messages("idle", "")

	reaped := reaper.Sweep(ctx, time.Now().Add(61*time.Minute))

	assert.Equal(t, 1, reaped)
	_, err = r.Get("idle")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, h.Exists("idle"))
	assert.Len(t, pub.published, 1)
	assert.Equal(t, events.TypeSessionReaped, pub.published[0].EventType())
}

func TestSweepKeepsActiveSession(t *testing.T) {
	r := newTestRegistry(t)
	h := NewHistories()
	reaper := NewReaper(r, h, 60*time.Minute, time.Minute, noopLogger{}, nil)
	ctx := context.Background()

	err := r.AddPassages(ctx, "active", []store.Passage{{Text: "hello", Source: "uploaded"}})
	assert.NoError(t, err)

	reaped := reaper.Sweep(ctx, time.Now().Add(59*time.Minute))

	assert.Zero(t, reaped)
	_, err = r.Get("active")
	assert.NoError(t, err)
}

func TestTouchExtendsLifetime(t *testing.T) {
	r := newTestRegistry(t)
	h := NewHistories()
	reaper := NewReaper(r, h, 60*time.Minute, time.Minute, noopLogger{}, nil)
	ctx := context.Background()

	err := r.AddPassages(ctx, "s1", []store.Passage{{Text: "hello", Source: "uploaded"}})
	assert.NoError(t, err)

	// Querying is activity; the idle clock restarts from the query.
	_, err = r.Query(ctx, "s1", "hello", 1, store.SearchSimilarity)
	assert.NoError(t, err)

	reaped := reaper.Sweep(ctx, time.Now().Add(30*time.Minute))

	assert.Zero(t, reaped)
}
