package app

import (
	"errors"

	"github.com/dkeye/AssistHub/internal/core"
	"github.com/dkeye/AssistHub/internal/domain"
)

var (
	ErrPeerSendFailure  = errors.New("peer send failure")
	ErrStaleConnection  = errors.New("stale connection")
	ErrShuttingDown     = errors.New("server shutting down")
	ErrRoleNotPermitted = errors.New("role not permitted")
)

type SendFailureAction int

const (
	NoAction SendFailureAction = iota
	DropMessage
	KickPeer
)

// Policy decides what happens to a peer after a failed send during fan-out.
type Policy interface {
	OnSendFailure(peer domain.Session, err error) SendFailureAction
}

// SimplePolicy drops the message for a congested peer and leaves closed
// peers to the disconnect path.
type SimplePolicy struct{}

func (SimplePolicy) OnSendFailure(_ domain.Session, err error) SendFailureAction {
	if errors.Is(err, core.ErrClosed) {
		return NoAction
	}
	return DropMessage
}

// KickSlowPolicy disconnects peers whose outbound queue is full.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnSendFailure(_ domain.Session, err error) SendFailureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return KickPeer
	}
	return NoAction
}

// Failure is one undelivered message in a fan-out.
type Failure struct {
	Session domain.Session
	Err     error
}

// FanoutResult reports delivery per fan-out; one failure never aborts the loop.
type FanoutResult struct {
	Sent   int
	Failed []Failure
}
