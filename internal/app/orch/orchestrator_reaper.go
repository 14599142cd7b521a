package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
)

// RunReaper sweeps for silent sessions every ReapInterval until ctx is done.
func (o *Orchestrator) RunReaper(ctx context.Context) {
	interval := o.options().ReapInterval
	if interval <= 0 {
		interval = DefaultOptions().ReapInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	log.Info().Str("module", "orch.reaper").Dur("interval", interval).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Sweep()
		}
	}
}

// Sweep evicts every session whose last message is older than StaleTimeout,
// closes its connection and broadcasts status once if anything was evicted.
// It returns the number of evictions.
func (o *Orchestrator) Sweep() int {
	timeout := o.options().StaleTimeout
	evicted := o.Registry.EvictStale(o.now(), timeout)
	if len(evicted) == 0 {
		return 0
	}

	for _, snap := range evicted {
		log.Info().
			Err(app.ErrStaleConnection).
			Str("module", "orch.reaper").
			Str("sid", string(snap.Session.ID)).
			Str("role", snap.Session.Role.String()).
			Time("last_seen", snap.Session.LastSeen).
			Msg("removing stale connection")
		snap.Conn.Close()
		o.Metrics.Disconnected("stale")
	}
	o.Metrics.Evicted(len(evicted))
	log.Info().Str("module", "orch.reaper").Int("count", len(evicted)).Msg("cleaned up stale connections")

	o.BroadcastStatus()
	return len(evicted)
}
