package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

// OnConnect registers a new session for conn. It fails with
// app.ErrShuttingDown once Shutdown has started.
func (o *Orchestrator) OnConnect(conn core.SignalConnection, remoteAddr, clientToken string) (domain.Session, error) {
	if o.closing.Load() {
		return domain.Session{}, app.ErrShuttingDown
	}
	sess := o.Registry.Register(conn, remoteAddr, clientToken)
	if o.closing.Load() {
		// Lost the race with Shutdown's drain.
		o.Registry.Remove(conn)
		return domain.Session{}, app.ErrShuttingDown
	}
	o.Metrics.Connected()
	log.Info().
		Str("module", "orch.lifecycle").
		Str("sid", string(sess.ID)).
		Str("addr", remoteAddr).
		Str("client", clientToken).
		Msg("new client connected")
	return sess, nil
}

// OnDisconnect is the single cleanup path for close and transport error
// events. A nil cause means a clean close. Calling it for a connection that
// is already gone (reaped, drained, or disconnected before) is a no-op.
func (o *Orchestrator) OnDisconnect(conn core.SignalConnection, cause error) {
	sess, ok := o.Registry.Remove(conn)
	if !ok {
		return
	}

	ev := log.Info()
	label := "close"
	if cause != nil {
		ev = log.Warn().Err(cause)
		label = "error"
	}
	ev.Str("module", "orch.lifecycle").
		Str("sid", string(sess.ID)).
		Str("role", sess.Role.String()).
		Str("addr", sess.RemoteAddr).
		Msg("client disconnected")
	o.Metrics.Disconnected(label)

	o.fanoutJSON(o.Registry.Snapshot(), core.NewUserDisconnected(sess, o.now()), kindNotice)
	o.BroadcastStatus()
}

// Shutdown notifies every open session, then closes all of them. Queued
// messages are flushed by the transport on close; the caller decides how
// long to wait for that before exiting.
func (o *Orchestrator) Shutdown() {
	if !o.closing.CompareAndSwap(false, true) {
		return
	}
	log.Info().Str("module", "orch.lifecycle").Msg("server shutting down")

	snaps := o.Registry.Drain()
	res := o.fanoutJSON(snaps, core.NewServerShutdown(o.now()), kindNotice)
	for _, s := range snaps {
		s.Conn.Close()
	}
	log.Info().
		Str("module", "orch.lifecycle").
		Int("notified", res.Sent).
		Int("failed", len(res.Failed)).
		Msg("shutdown notices sent")
}

// Closing reports whether Shutdown has started.
func (o *Orchestrator) Closing() bool {
	return o.closing.Load()
}
