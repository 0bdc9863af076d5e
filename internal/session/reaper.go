package session

import (
	"context"
	"time"

	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/pkg/events"
)

// Reaper purges sessions whose last activity is older than the TTL. It runs
// one sweep per period; each sweep takes the same per-session lock as chat
// turns, so a session is never torn down mid-request.
type Reaper struct {
	registry  *Registry
	histories *Histories
	ttl       time.Duration
	period    time.Duration
	logger    logger.ILogger
	publisher events.Publisher
}

func NewReaper(registry *Registry, histories *Histories, ttl, period time.Duration, log logger.ILogger, publisher events.Publisher) *Reaper {
	return &Reaper{
		registry:  registry,
		histories: histories,
		ttl:       ttl,
		period:    period,
		logger:    log,
		publisher: publisher,
	}
}

// Start runs periodic sweeps until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("reaper", "Session reaper started", map[string]interface{}{
		"ttl":    r.ttl.String(),
		"period": r.period.String(),
	})

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper", "Session reaper stopped", nil)
			return
		case now := <-ticker.C:
			r.Sweep(ctx, now)
		}
	}
}

// Sweep purges every session idle at `now`. A failure on one session is
// logged and does not stop the sweep.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) int {
	reaped := 0
	for id, last := range r.registry.LastActive() {
		if now.Sub(last) <= r.ttl {
			continue
		}

		mu := r.registry.Lock(id)
		mu.Lock()
		err := r.registry.Purge(id)
		if err == nil {
			r.histories.Drop(id)
		}
		mu.Unlock()

		if err != nil {
			r.logger.Error("reaper", "Failed to purge idle session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
			continue
		}

		reaped++
		r.logger.Info("reaper", "Reaped idle session", map[string]interface{}{
			"session_id": id,
			"idle_for":   now.Sub(last).String(),
		})
		if r.publisher != nil {
			if err := r.publisher.Publish(ctx, events.NewSessionPurged(id, true)); err != nil {
				r.logger.Warn("reaper", "Failed to publish reap event", map[string]interface{}{
					"session_id": id,
					"error":      err.Error(),
				})
			}
		}
	}
	return reaped
}
