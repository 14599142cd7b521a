package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

// Relay kinds used for metrics and trace logs.
const (
	kindVideo      = "video"
	kindDrawing    = "drawing"
	kindClear      = "clear"
	kindSignaling  = "signaling"
	kindAudioCall  = "audio_call"
	kindAudioState = "audio_status"
	kindStatus     = "client_status"
	kindNotice     = "notice"
)

// OnMessage classifies one inbound payload and dispatches it. Messages from
// connections that are no longer registered are ignored.
func (o *Orchestrator) OnMessage(conn core.SignalConnection, msg core.Message) {
	sess, ok := o.Registry.Touch(conn)
	if !ok {
		return
	}

	if role, ok := core.ParseRoleToken(msg.Data); ok {
		o.handleRole(conn, sess, role)
		return
	}

	if msg.Binary && sess.Role == domain.RoleUser {
		o.relayVideo(sess, msg.Data)
		return
	}

	env, err := core.ParseEnvelope(msg.Data)
	if err != nil {
		o.Metrics.Malformed()
		log.Warn().
			Err(err).
			Str("module", "orch.router").
			Str("sid", string(sess.ID)).
			Str("role", sess.Role.String()).
			Int("bytes", len(msg.Data)).
			Msg("dropping payload")
		return
	}

	kind := env.Kind
	if kind.Signaling() && !o.options().AudioSignaling {
		kind = core.KindUnknown
	}

	switch kind {
	case core.KindDrawing:
		o.handleDrawing(sess, env)
	case core.KindClear:
		o.handleClear(sess, env)
	case core.KindOffer, core.KindAnswer, core.KindICECandidate:
		o.handleSignaling(sess, env)
	case core.KindAudioCallStart:
		o.handleAudioCall(conn, sess, env, true)
	case core.KindAudioCallEnd:
		o.handleAudioCall(conn, sess, env, false)
	case core.KindAudioStatus:
		o.handleAudioStatus(sess, env)
	case core.KindHeartbeat:
		o.sendJSON(conn, core.NewHeartbeatAck(o.now()))
	case core.KindUnknown:
		o.Metrics.UnknownType()
		log.Warn().
			Str("module", "orch.router").
			Str("sid", string(sess.ID)).
			Str("role", sess.Role.String()).
			Str("type", env.Type).
			Msg("unknown message type")
	}
}

func (o *Orchestrator) handleRole(conn core.SignalConnection, sess domain.Session, value string) {
	role := domain.Role(value)
	logger := log.With().
		Str("module", "orch.router").
		Str("sid", string(sess.ID)).
		Str("addr", sess.RemoteAddr).
		Str("role", value).
		Logger()

	if !role.Known() {
		if o.options().StrictRoles {
			logger.Warn().Err(app.ErrRoleNotPermitted).Msg("role rejected")
			return
		}
		logger.Warn().Msg("role is not routed, storing anyway")
	}

	if _, ok := o.Registry.SetRole(conn, role); !ok {
		return
	}
	logger.Info().Msg("role assigned")
	if err := conn.TrySend(core.RoleConfirmed(value)); err != nil {
		logger.Warn().Err(err).Msg("role confirmation not sent")
	}
	o.BroadcastStatus()
}
