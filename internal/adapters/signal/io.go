package signal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

var ErrTransport = errors.New("transport error")

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		t := time.NewTicker(ctl.opts.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case m, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(ctl.opts.WriteTimeout))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			typ := websocket.TextMessage
			if m.Binary {
				typ = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(typ, m.Data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(sid domain.SessionID, c *WsSignalConn) {
	var cause error
	defer func() {
		ctl.Orch.OnDisconnect(c, cause)
		c.Close()
	}()

	if ctl.opts.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.opts.ReadLimit)
	}

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			cause = readError(err)
			log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
			return
		}
		ctl.Orch.OnMessage(c, core.Message{Binary: typ == websocket.BinaryMessage, Data: data})
	}
}

// readError maps a read failure to a disconnect cause. Clean closes, and
// sockets closed locally by the hub, yield nil.
func readError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return nil
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
