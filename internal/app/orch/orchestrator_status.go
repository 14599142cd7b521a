package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

// Status computes the aggregate counts from the registry at call time.
func (o *Orchestrator) Status() domain.Status {
	return domain.Tally(o.Registry.Sessions())
}

// BroadcastStatus sends a fresh client_status snapshot to every open session.
// Near-simultaneous triggers may send overlapping snapshots.
func (o *Orchestrator) BroadcastStatus() {
	targets := o.Registry.Snapshot()
	st := domain.Tally(sessionsOf(targets))
	o.Metrics.ObserveStatus(st)

	log.Info().
		Str("module", "orch.status").
		Int("users", st.Users).
		Int("aids", st.Aids).
		Int("audio", st.AudioConnections).
		Int("total", st.TotalClients).
		Msg("broadcasting status")

	o.fanoutJSON(targets, core.NewClientStatus(st, o.now()), kindStatus)
}

// RunStatusReport logs the hub state every ReportInterval until ctx is done.
// The report is part of relay tracing and is skipped when tracing is off.
func (o *Orchestrator) RunStatusReport(ctx context.Context) {
	interval := o.options().ReportInterval
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if o.options().RelayTrace {
				o.ReportStatus()
			}
		}
	}
}

func (o *Orchestrator) ReportStatus() {
	sessions := o.Registry.Sessions()
	st := domain.Tally(sessions)
	log.Info().
		Str("module", "orch.status").
		Int("total", st.TotalClients).
		Int("users", st.Users).
		Int("aids", st.Aids).
		Int("audio", st.AudioConnections).
		Msg("server status")
	for _, s := range sessions {
		log.Info().
			Str("module", "orch.status").
			Str("role", s.Role.String()).
			Str("sid", string(s.ID)).
			Bool("audio", s.AudioEnabled).
			Str("addr", s.RemoteAddr).
			Time("last_seen", s.LastSeen).
			Msg("session")
	}
}

func sessionsOf(snaps []app.Snap) []domain.Session {
	out := make([]domain.Session, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Session)
	}
	return out
}
