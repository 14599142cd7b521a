package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/AssistHub/internal/domain"
)

func TestParseEnvelope_Kinds(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
	}{
		{`{"type":"drawing","points":[[0,0,0],[1,1,1]]}`, KindDrawing},
		{`{"type":"clear"}`, KindClear},
		{`{"type":"offer","sdp":"v=0"}`, KindOffer},
		{`{"type":"answer","sdp":"v=0"}`, KindAnswer},
		{`{"type":"ice_candidate","candidate":"candidate:1"}`, KindICECandidate},
		{`{"type":"audio_call_start"}`, KindAudioCallStart},
		{`{"type":"audio_call_end"}`, KindAudioCallEnd},
		{`{"type":"audio_status","status":"muted"}`, KindAudioStatus},
		{`{"type":"heartbeat"}`, KindHeartbeat},
		{`{"type":"teleport"}`, KindUnknown},
	}
	for _, c := range cases {
		env, err := ParseEnvelope([]byte(c.in))
		if err != nil {
			t.Errorf("ParseEnvelope(%s): unexpected error %v", c.in, err)
			continue
		}
		if env.Kind != c.kind {
			t.Errorf("ParseEnvelope(%s): kind got %d, want %d", c.in, env.Kind, c.kind)
		}
	}
}

func TestParseEnvelope_UnknownKeepsType(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"teleport","x":1}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != "teleport" {
		t.Errorf("Type: got %q, want teleport", env.Type)
	}
}

func TestParseEnvelope_Malformed(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"type":`,
		`null`,
		`[1,2,3]`,
		`{"points":[]}`,
		`{"type":42}`,
		`{"type":"drawing"}`,
		`{"type":"drawing","points":"nope"}`,
		`{"type":"audio_status"}`,
		`{"type":"audio_status","status":3}`,
	}
	for _, in := range inputs {
		_, err := ParseEnvelope([]byte(in))
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("ParseEnvelope(%s): got %v, want ErrMalformedPayload", in, err)
		}
	}
}

func TestEnvelope_PointCount(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"drawing","points":[{"x":1},{"x":2},{"x":3}]}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if n := env.PointCount(); n != 3 {
		t.Errorf("PointCount: got %d, want 3", n)
	}
}

func TestEnvelope_StampDrawing(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"drawing","points":[],"color":"red","timestamp":1}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	now := time.UnixMilli(1700000000123)
	out, err := env.Stamp(now, domain.SessionID("abc"))
	if err != nil {
		t.Fatalf("Stamp: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "drawing" {
		t.Errorf("type: got %v", m["type"])
	}
	if m["color"] != "red" {
		t.Errorf("color: got %v, want passthrough red", m["color"])
	}
	if m["timestamp"] != float64(1700000000123) {
		t.Errorf("timestamp: got %v, want server time", m["timestamp"])
	}
	if m["sessionId"] != "abc" {
		t.Errorf("sessionId: got %v, want abc", m["sessionId"])
	}
	if m["is3D"] != true {
		t.Errorf("is3D: got %v, want true", m["is3D"])
	}
}

func TestEnvelope_StampSignalingVerbatim(t *testing.T) {
	in := `{"type":"offer","sdp":"v=0\r\n","nested":{"a":[1,2]}}`
	env, err := ParseEnvelope([]byte(in))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	out, err := env.Stamp(time.Now(), "sid")
	if err != nil {
		t.Fatalf("Stamp: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["sdp"] != "v=0\r\n" {
		t.Errorf("sdp: got %q", m["sdp"])
	}
	if _, ok := m["is3D"]; ok {
		t.Error("is3D must only be set on drawings")
	}
	nested, ok := m["nested"].(map[string]any)
	if !ok || len(nested["a"].([]any)) != 2 {
		t.Errorf("nested: got %v", m["nested"])
	}
}

func TestParseRoleToken(t *testing.T) {
	cases := []struct {
		in   string
		role string
		ok   bool
	}{
		{"ROLE:User", "User", true},
		{"ROLE:Aid", "Aid", true},
		{"ROLE:", "", true},
		{"ROLE:a:b", "a:b", true},
		{"role:User", "", false},
		{`{"type":"heartbeat"}`, "", false},
	}
	for _, c := range cases {
		role, ok := ParseRoleToken([]byte(c.in))
		if ok != c.ok || role != c.role {
			t.Errorf("ParseRoleToken(%q): got (%q, %v), want (%q, %v)", c.in, role, ok, c.role, c.ok)
		}
	}
}

func TestNewUserDisconnected_UnassignedRoleIsNull(t *testing.T) {
	b, err := json.Marshal(NewUserDisconnected(domain.Session{ID: "x"}, time.Now()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if v, ok := m["role"]; !ok || v != nil {
		t.Errorf("role: got %v (present=%v), want null", v, ok)
	}
	if m["userId"] != "x" {
		t.Errorf("userId: got %v, want x", m["userId"])
	}
}

func TestNewClientStatus_Flattened(t *testing.T) {
	st := domain.Status{Users: 1, Aids: 2, AudioConnections: 1, TotalClients: 4}
	b, err := json.Marshal(NewClientStatus(st, time.UnixMilli(5)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for k, want := range map[string]float64{"users": 1, "aids": 2, "audioConnections": 1, "totalClients": 4, "timestamp": 5} {
		if m[k] != want {
			t.Errorf("%s: got %v, want %v", k, m[k], want)
		}
	}
	if m["type"] != "client_status" {
		t.Errorf("type: got %v", m["type"])
	}
}
