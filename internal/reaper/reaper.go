// Package reaper periodically evicts sessions that have been idle too long.
package reaper

import (
	"context"
	"time"

	"career-bot/internal/constant"
	"career-bot/internal/metrics"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/service"
	"career-bot/internal/session"
	"career-bot/pkg/events"
)

const (
	DefaultInterval  = 6 * time.Hour
	DefaultThreshold = 24 * time.Hour
)

type Option func(*Reaper)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) {
		r.now = now
	}
}

type Reaper struct {
	store     *session.Store
	interval  time.Duration
	threshold time.Duration
	events    service.IEventPublisher
	logger    logger.ILogger
	now       func() time.Time
}

func New(store *session.Store, interval, threshold time.Duration, publisher service.IEventPublisher, log logger.ILogger, opts ...Option) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	r := &Reaper{
		store:     store,
		interval:  interval,
		threshold: threshold,
		events:    publisher,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps every interval until ctx is done. The first sweep happens one
// full interval after Run is called.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("REAPER", "Idle session reaper started", map[string]interface{}{
		"interval":  r.interval.String(),
		"threshold": r.threshold.String(),
	})

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("REAPER", "Idle session reaper stopping", nil)
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep evicts every session idle for longer than the threshold and
// returns how many were removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	start := time.Now()
	removed := r.store.EvictIdle(r.now().Add(-r.threshold))
	remaining := r.store.Len()

	metrics.ActiveSessions.Set(float64(remaining))

	if removed == 0 {
		r.logger.Debug("REAPER", "Sweep found no idle sessions", map[string]interface{}{"sessions": remaining})
		return 0
	}

	metrics.SessionsReapedTotal.Add(float64(removed))
	r.logger.Info("REAPER", "Evicted idle sessions", map[string]interface{}{
		"removed":     removed,
		"remaining":   remaining,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	r.events.Publish(ctx, events.New(constant.EventSessionsReaped, map[string]interface{}{
		"removed":   removed,
		"remaining": remaining,
	}))
	return removed
}
