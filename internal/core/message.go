package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dkeye/AssistHub/internal/domain"
)

var ErrMalformedPayload = errors.New("malformed payload")

// Kind is the closed set of envelope types the router understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindDrawing
	KindClear
	KindOffer
	KindAnswer
	KindICECandidate
	KindAudioCallStart
	KindAudioCallEnd
	KindAudioStatus
	KindHeartbeat
)

var kindByType = map[string]Kind{
	"drawing":          KindDrawing,
	"clear":            KindClear,
	"offer":            KindOffer,
	"answer":           KindAnswer,
	"ice_candidate":    KindICECandidate,
	"audio_call_start": KindAudioCallStart,
	"audio_call_end":   KindAudioCallEnd,
	"audio_status":     KindAudioStatus,
	"heartbeat":        KindHeartbeat,
}

// Signaling reports whether k belongs to the audio call feature.
func (k Kind) Signaling() bool {
	switch k {
	case KindOffer, KindAnswer, KindICECandidate,
		KindAudioCallStart, KindAudioCallEnd, KindAudioStatus:
		return true
	}
	return false
}

// Envelope is a parsed structured message. Fields keeps every key verbatim
// so relays pass through what they do not understand.
type Envelope struct {
	Kind   Kind
	Type   string
	Fields map[string]json.RawMessage
}

// ParseEnvelope decodes a JSON object with a string "type" field.
// Unrecognised types yield KindUnknown, not an error.
func ParseEnvelope(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw, ok := fields["type"]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}
	var typ string
	if err := json.Unmarshal(raw, &typ); err != nil {
		return Envelope{}, fmt.Errorf("%w: type is not a string", ErrMalformedPayload)
	}

	env := Envelope{Kind: kindByType[typ], Type: typ, Fields: fields}
	switch env.Kind {
	case KindDrawing:
		if env.PointCount() < 0 {
			return Envelope{}, fmt.Errorf("%w: drawing without points", ErrMalformedPayload)
		}
	case KindAudioStatus:
		if _, ok := env.StringField("status"); !ok {
			return Envelope{}, fmt.Errorf("%w: audio_status without status", ErrMalformedPayload)
		}
	}
	return env, nil
}

// StringField returns a top-level string field.
func (e Envelope) StringField(name string) (string, bool) {
	raw, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// PointCount is the length of the "points" array, or -1 if absent or not an array.
func (e Envelope) PointCount() int {
	raw, ok := e.Fields["points"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return -1
	}
	var points []json.RawMessage
	if err := json.Unmarshal(raw, &points); err != nil {
		return -1
	}
	return len(points)
}

// Stamp returns the envelope re-encoded with server metadata: timestamp and
// sessionId, plus is3D for drawings. Client-supplied values for those keys
// are overwritten.
func (e Envelope) Stamp(now time.Time, sid domain.SessionID) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Fields)+3)
	maps.Copy(out, e.Fields)

	ts, _ := json.Marshal(now.UnixMilli())
	id, _ := json.Marshal(string(sid))
	out["timestamp"] = ts
	out["sessionId"] = id
	if e.Kind == KindDrawing {
		out["is3D"] = json.RawMessage("true")
	}
	return json.Marshal(out)
}

const (
	rolePrefix          = "ROLE:"
	roleConfirmedPrefix = "ROLE_CONFIRMED:"
)

// ParseRoleToken recognises the "ROLE:<value>" control token. The value is
// everything after the first colon, unvalidated.
func ParseRoleToken(data []byte) (string, bool) {
	rest, ok := bytes.CutPrefix(data, []byte(rolePrefix))
	if !ok {
		return "", false
	}
	return string(rest), true
}

func RoleConfirmed(role string) Message {
	return Text([]byte(roleConfirmedPrefix + role))
}

// Server-originated messages.

type HeartbeatAck struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type ClientStatus struct {
	Type string `json:"type"`
	domain.Status
	Timestamp int64 `json:"timestamp"`
}

type UserDisconnected struct {
	Type      string           `json:"type"`
	UserID    domain.SessionID `json:"userId"`
	Role      *string          `json:"role"`
	Timestamp int64            `json:"timestamp"`
}

type ServerShutdown struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func NewHeartbeatAck(now time.Time) HeartbeatAck {
	return HeartbeatAck{Type: "heartbeat_ack", Timestamp: now.UnixMilli()}
}

func NewClientStatus(st domain.Status, now time.Time) ClientStatus {
	return ClientStatus{Type: "client_status", Status: st, Timestamp: now.UnixMilli()}
}

// NewUserDisconnected reports an unassigned role as JSON null.
func NewUserDisconnected(s domain.Session, now time.Time) UserDisconnected {
	msg := UserDisconnected{Type: "user_disconnected", UserID: s.ID, Timestamp: now.UnixMilli()}
	if s.Role != domain.RoleUnassigned {
		role := string(s.Role)
		msg.Role = &role
	}
	return msg
}

func NewServerShutdown(now time.Time) ServerShutdown {
	return ServerShutdown{Type: "server_shutdown", Message: "Server is shutting down", Timestamp: now.UnixMilli()}
}
