package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/AssistHub/internal/core"
)

var ErrNoSignalPayload = errors.New("no signaling payload")

// Summary describes a signaling message for trace logs. The hub relays the
// original bytes regardless of what Inspect finds.
type Summary struct {
	SDPType   string
	Audio     int
	Video     int
	Data      int
	Candidate string
	Network   string
	MID       string
}

func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	if s.SDPType != "" {
		e.Str("sdp_type", s.SDPType).Int("audio", s.Audio).Int("video", s.Video).Int("data", s.Data)
	}
	if s.Candidate != "" {
		e.Str("cand_type", s.Candidate).Str("network", s.Network).Str("mid", s.MID)
	}
}

type Inspector struct{}

// Inspect decodes offers and answers as SDP and ICE candidates as
// ICECandidateInit. Other kinds return an empty summary.
func (Inspector) Inspect(env core.Envelope) (zerolog.LogObjectMarshaler, error) {
	switch env.Kind {
	case core.KindOffer, core.KindAnswer:
		return inspectDescription(env)
	case core.KindICECandidate:
		return inspectCandidate(env)
	}
	return Summary{}, nil
}

func inspectDescription(env core.Envelope) (Summary, error) {
	raw, ok := env.StringField("sdp")
	if !ok {
		// Some endpoints nest the description: {"type":"offer","offer":{"type":"offer","sdp":"..."}}.
		var nested webrtc.SessionDescription
		if err := json.Unmarshal(env.Fields[env.Type], &nested); err != nil || nested.SDP == "" {
			return Summary{}, ErrNoSignalPayload
		}
		raw = nested.SDP
	}

	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(env.Type), SDP: raw}
	parsed, err := desc.Unmarshal()
	if err != nil {
		return Summary{}, fmt.Errorf("parse sdp: %w", err)
	}

	sum := Summary{SDPType: desc.Type.String()}
	for _, md := range parsed.MediaDescriptions {
		switch md.MediaName.Media {
		case "audio":
			sum.Audio++
		case "video":
			sum.Video++
		case "application":
			sum.Data++
		}
	}
	return sum, nil
}

func inspectCandidate(env core.Envelope) (Summary, error) {
	raw, ok := env.Fields["candidate"]
	if !ok {
		return Summary{}, ErrNoSignalPayload
	}

	var init webrtc.ICECandidateInit
	if _, isString := env.StringField("candidate"); isString {
		// Flat form: candidate, sdpMid and sdpMLineIndex at the top level.
		flat, err := json.Marshal(env.Fields)
		if err != nil {
			return Summary{}, err
		}
		if err := json.Unmarshal(flat, &init); err != nil {
			return Summary{}, fmt.Errorf("decode candidate: %w", err)
		}
	} else if err := json.Unmarshal(raw, &init); err != nil {
		return Summary{}, fmt.Errorf("decode candidate: %w", err)
	}

	value := strings.TrimPrefix(init.Candidate, "candidate:")
	if value == "" {
		// End-of-candidates marker.
		return Summary{Candidate: "end"}, nil
	}
	cand, err := ice.UnmarshalCandidate(value)
	if err != nil {
		return Summary{}, fmt.Errorf("parse candidate: %w", err)
	}
	sum := Summary{Candidate: cand.Type().String(), Network: cand.NetworkType().String()}
	if init.SDPMid != nil {
		sum.MID = *init.SDPMid
	}
	return sum, nil
}
