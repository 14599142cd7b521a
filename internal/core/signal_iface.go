package core

import "errors"

// Frame is a raw payload as it travels over the wire.
type Frame []byte

// Message is one framed payload. Binary distinguishes binary frames (video)
// from text frames (control tokens and JSON envelopes).
type Message struct {
	Binary bool
	Data   Frame
}

func Text(b []byte) Message   { return Message{Data: b} }
func Binary(b []byte) Message { return Message{Binary: true, Data: b} }

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalConnection abstracts the duplex transport of one session.
// Owned by the adapter; the hub only sends to it and may Close() it.
type SignalConnection interface {
	// TrySend queues m without blocking. It fails with ErrBackpressure when
	// the outbound queue is full and ErrClosed after Close.
	TrySend(m Message) error
	// Close flushes queued messages and releases the transport. Idempotent.
	Close()
	IsOpen() bool
}
