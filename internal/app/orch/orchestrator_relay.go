package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

// complement selects every session whose role differs from role, including
// unassigned ones.
func (o *Orchestrator) complement(role domain.Role) []app.Snap {
	return o.Registry.Filter(func(s domain.Session) bool { return s.Role != role })
}

// relayVideo forwards a frame from a User verbatim to every open Aid.
// Frames are never queued for later or retried.
func (o *Orchestrator) relayVideo(sender domain.Session, frame core.Frame) {
	frameLog, noAidLog := o.samplers()

	aids := o.Registry.Filter(func(s domain.Session) bool { return s.Role == domain.RoleAid })
	if len(aids) == 0 {
		noAidLog.Info().Str("sid", string(sender.ID)).Msg("no Aid clients available to receive video frame")
		return
	}

	res := o.fanout(aids, core.Binary(frame), kindVideo)
	frameLog.Info().
		Str("sid", string(sender.ID)).
		Int("bytes", len(frame)).
		Int("aids", len(aids)).
		Int("sent", res.Sent).
		Int("failed", len(res.Failed)).
		Msg("relaying video frame")
}

// relayStamped stamps env and relays it to the role-complement of sender.
func (o *Orchestrator) relayStamped(sender domain.Session, env core.Envelope, kind string) app.FanoutResult {
	b, err := env.Stamp(o.now(), sender.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "orch.relay").Str("type", env.Type).Msg("stamp")
		return app.FanoutResult{}
	}

	targets := o.complement(sender.Role)
	if len(targets) == 0 {
		log.Info().
			Str("module", "orch.relay").
			Str("type", env.Type).
			Str("from_role", sender.Role.String()).
			Msg("no target clients")
		return app.FanoutResult{}
	}

	res := o.fanout(targets, core.Text(b), kind)
	if len(res.Failed) > 0 {
		log.Warn().
			Str("module", "orch.relay").
			Str("type", env.Type).
			Str("sid", string(sender.ID)).
			Int("sent", res.Sent).
			Int("failed", len(res.Failed)).
			Msg("partial relay")
	}
	return res
}

func (o *Orchestrator) handleDrawing(sender domain.Session, env core.Envelope) {
	log.Info().
		Str("module", "orch.relay").
		Str("sid", string(sender.ID)).
		Str("role", sender.Role.String()).
		Int("points", env.PointCount()).
		Msg("received 3D drawing")
	o.relayStamped(sender, env, kindDrawing)
}

func (o *Orchestrator) handleClear(sender domain.Session, env core.Envelope) {
	log.Info().
		Str("module", "orch.relay").
		Str("sid", string(sender.ID)).
		Str("role", sender.Role.String()).
		Msg("received clear command")
	o.relayStamped(sender, env, kindClear)
}

// handleSignaling passes offer/answer/ice_candidate through untouched apart
// from the stamps. Inspection only feeds the log.
func (o *Orchestrator) handleSignaling(sender domain.Session, env core.Envelope) {
	ev := log.Info().
		Str("module", "orch.signal").
		Str("sid", string(sender.ID)).
		Str("role", sender.Role.String()).
		Str("type", env.Type)
	if o.Signals != nil && o.options().RelayTrace {
		sum, err := o.Signals.Inspect(env)
		if err != nil {
			ev = ev.AnErr("inspect", err)
		} else {
			ev = ev.EmbedObject(sum)
		}
	}
	ev.Msg("webrtc signaling")
	o.relayStamped(sender, env, kindSignaling)
}

func (o *Orchestrator) handleAudioCall(conn core.SignalConnection, sender domain.Session, env core.Envelope, started bool) {
	updated, ok := o.Registry.SetAudio(conn, started)
	if !ok {
		return
	}
	msg := "audio call ended"
	if started {
		msg = "audio call started"
	}
	log.Info().
		Str("module", "orch.signal").
		Str("sid", string(updated.ID)).
		Str("role", updated.Role.String()).
		Msg(msg)

	o.relayStamped(updated, env, kindAudioCall)
	o.BroadcastStatus()
}

func (o *Orchestrator) handleAudioStatus(sender domain.Session, env core.Envelope) {
	status, _ := env.StringField("status")
	log.Info().
		Str("module", "orch.signal").
		Str("sid", string(sender.ID)).
		Str("role", sender.Role.String()).
		Str("status", status).
		Msg("audio status")
	o.relayStamped(sender, env, kindAudioState)
}
