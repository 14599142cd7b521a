package orch

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/config"
	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/metrics"
)

// Options are the hot-reloadable knobs of the hub.
type Options struct {
	AudioSignaling bool
	RelayTrace     bool
	StrictRoles    bool
	StaleTimeout   time.Duration
	ReapInterval   time.Duration
	ReportInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		AudioSignaling: true,
		RelayTrace:     true,
		StaleTimeout:   60 * time.Second,
		ReapInterval:   30 * time.Second,
		ReportInterval: 60 * time.Second,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AudioSignaling: cfg.Features.AudioSignaling,
		RelayTrace:     cfg.Features.RelayTrace,
		StrictRoles:    cfg.Roles.Strict,
		StaleTimeout:   cfg.Reaper.Timeout,
		ReapInterval:   cfg.Reaper.Interval,
		ReportInterval: cfg.StatusReport.Interval,
	}
}

// SignalInspector describes signaling payloads for trace logs.
type SignalInspector interface {
	Inspect(env core.Envelope) (zerolog.LogObjectMarshaler, error)
}

// Orchestrator owns the routing decisions of the hub. All session state
// lives in Registry; the orchestrator itself is safe for concurrent use.
type Orchestrator struct {
	Registry *app.Registry
	Policy   app.Policy
	Metrics  *metrics.Metrics
	Signals  SignalInspector
	Now      func() time.Time

	opts    atomic.Pointer[Options]
	closing atomic.Bool

	samplersOnce sync.Once
	frameLog     zerolog.Logger
	noAidLog     zerolog.Logger
}

func (o *Orchestrator) SetOptions(opts Options) {
	o.opts.Store(&opts)
	log.Info().
		Str("module", "orch").
		Bool("audio_signaling", opts.AudioSignaling).
		Bool("relay_trace", opts.RelayTrace).
		Bool("strict_roles", opts.StrictRoles).
		Msg("options applied")
}

func (o *Orchestrator) options() Options {
	if p := o.opts.Load(); p != nil {
		return *p
	}
	return DefaultOptions()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// samplers log high-frequency video events at reduced frequency.
func (o *Orchestrator) samplers() (frame, noAid *zerolog.Logger) {
	o.samplersOnce.Do(func() {
		o.frameLog = log.Sample(&zerolog.BurstSampler{Burst: 1, Period: 3 * time.Second}).
			With().Str("module", "orch.video").Logger()
		o.noAidLog = log.Sample(&zerolog.BurstSampler{Burst: 1, Period: 5 * time.Second}).
			With().Str("module", "orch.video").Logger()
	})
	return &o.frameLog, &o.noAidLog
}

// fanout delivers m to every open target. A failure on one peer is recorded
// and handed to Policy; the loop always continues.
func (o *Orchestrator) fanout(targets []app.Snap, m core.Message, kind string) app.FanoutResult {
	var res app.FanoutResult
	trace := o.options().RelayTrace
	for _, t := range targets {
		if !t.Conn.IsOpen() {
			continue
		}
		if err := t.Conn.TrySend(m); err != nil {
			res.Failed = append(res.Failed, app.Failure{
				Session: t.Session,
				Err:     fmt.Errorf("%w: %w", app.ErrPeerSendFailure, err),
			})
			o.onSendFailure(t, err, kind)
			continue
		}
		res.Sent++
		if trace && kind != kindVideo {
			log.Info().
				Str("module", "orch.relay").
				Str("kind", kind).
				Str("to_sid", string(t.Session.ID)).
				Str("to_role", t.Session.Role.String()).
				Msg("relayed")
		}
	}
	o.Metrics.Relayed(kind, res.Sent)
	o.Metrics.SendFailures(kind, len(res.Failed))
	return res
}

func (o *Orchestrator) onSendFailure(t app.Snap, err error, kind string) {
	log.Warn().
		Err(err).
		Str("module", "orch.relay").
		Str("kind", kind).
		Str("to_sid", string(t.Session.ID)).
		Msg("send to peer failed")

	if o.Policy == nil {
		return
	}
	switch o.Policy.OnSendFailure(t.Session, err) {
	case app.KickPeer:
		log.Info().Str("module", "orch.relay").Str("sid", string(t.Session.ID)).Msg("kicking slow peer")
		t.Conn.Close()
	case app.DropMessage, app.NoAction:
	}
}

func (o *Orchestrator) fanoutJSON(targets []app.Snap, v any, kind string) app.FanoutResult {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("kind", kind).Msg("marshal")
		return app.FanoutResult{}
	}
	return o.fanout(targets, core.Text(b), kind)
}

func (o *Orchestrator) sendJSON(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("sendJSON marshal")
		return
	}
	if err := conn.TrySend(core.Text(b)); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("reply not sent")
	}
}
