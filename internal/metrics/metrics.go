// Package metrics exposes hub counters in Prometheus format.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkeye/AssistHub/internal/domain"
)

const namespace = "assist_hub"

type Metrics struct {
	sessions     *prometheus.GaugeVec
	relayed      *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
	malformed    prometheus.Counter
	unknown      prometheus.Counter
	evicted      prometheus.Counter
	connects     prometheus.Counter
	disconnects  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions",
				Help:      "Current sessions by aggregate kind.",
			},
			[]string{"kind"},
		),
		relayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "messages_total",
				Help:      "Messages delivered to peers, by message kind.",
			},
			[]string{"kind"},
		),
		sendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "send_failures_total",
				Help:      "Per-peer send failures during fan-out.",
			},
			[]string{"kind"},
		),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "malformed_total",
			Help:      "Inbound payloads that could not be parsed.",
		}),
		unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "unknown_type_total",
			Help:      "Inbound envelopes with an unrecognised type.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "evicted_total",
			Help:      "Sessions evicted for inactivity.",
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Accepted connections.",
		}),
		disconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disconnects_total",
				Help:      "Closed connections by cause.",
			},
			[]string{"cause"},
		),
	}
	reg.MustRegister(m.sessions, m.relayed, m.sendFailures, m.malformed, m.unknown, m.evicted, m.connects, m.disconnects)
	return m
}

func (m *Metrics) ObserveStatus(st domain.Status) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("user").Set(float64(st.Users))
	m.sessions.WithLabelValues("aid").Set(float64(st.Aids))
	m.sessions.WithLabelValues("audio").Set(float64(st.AudioConnections))
	m.sessions.WithLabelValues("total").Set(float64(st.TotalClients))
}

func (m *Metrics) Relayed(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.relayed.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) SendFailures(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.sendFailures.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Malformed() {
	if m != nil {
		m.malformed.Inc()
	}
}

func (m *Metrics) UnknownType() {
	if m != nil {
		m.unknown.Inc()
	}
}

func (m *Metrics) Evicted(n int) {
	if m != nil {
		m.evicted.Add(float64(n))
	}
}

func (m *Metrics) Connected() {
	if m != nil {
		m.connects.Inc()
	}
}

func (m *Metrics) Disconnected(cause string) {
	if m != nil {
		m.disconnects.WithLabelValues(cause).Inc()
	}
}
