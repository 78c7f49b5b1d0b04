package promptgate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the counters below.
const (
	outcomeSuccess      = "success"
	outcomeFailure      = "failure"
	outcomeUnverified   = "unverified"
	outcomeRateLimited  = "rate_limited"
	outcomeError        = "error"
	outcomeConflict     = "conflict"
	outcomeInvalid      = "invalid"
	outcomeMailDeferred = "mail_failed"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	logins         *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	logouts        prometheus.Counter
	gateRejections *prometheus.CounterVec
	sessions       *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_logins_total",
				Help: "Login attempts by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_registrations_total",
				Help: "Registration attempts by outcome.",
			},
			[]string{"outcome"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_email_verifications_total",
				Help: "Email verification redemptions by outcome.",
			},
			[]string{"outcome"},
		),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptgate_logouts_total",
			Help: "Sessions removed by logout.",
		}),
		gateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_auth_gate_rejections_total",
				Help: "Requests rejected by the auth gate, by reason.",
			},
			[]string{"reason"},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_sessions_created_total",
				Help: "Sessions created by login channel.",
			},
			[]string{"channel"},
		),
	}

	for _, c := range []prometheus.Collector{m.logins, m.registrations, m.verifications, m.logouts, m.gateRejections, m.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) login(channel, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) sessionCreated(channel string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(channel).Inc()
}

func (m *Metrics) registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func (m *Metrics) gateRejected(reason string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(reason).Inc()
}
