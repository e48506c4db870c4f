package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	UsersRegistered        prometheus.Counter
	LoginsTotal            prometheus.Counter
	LogoutsTotal           prometheus.Counter
	ActiveSessions         prometheus.Gauge
	AuthFailures           *prometheus.CounterVec
	SessionDurationMinutes prometheus.Histogram
	LoginDurationMs        prometheus.Histogram
	SessionsExpired        prometheus.Counter
}

// New registers auth collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_users_registered_total",
			Help: "Total number of accounts created",
		}),
		LoginsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_logins_total",
			Help: "Total number of successful logins (sessions opened)",
		}),
		LogoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_logouts_total",
			Help: "Total number of sessions ended by logout",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fithub_active_sessions",
			Help: "Sessions opened minus sessions ended since process start",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fithub_auth_failures_total",
			Help: "Authentication failures by reason",
		}, []string{"reason"}),
		SessionDurationMinutes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fithub_session_duration_minutes",
			Help:    "Length of ended sessions in minutes",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 360, 1440, 10080},
		}),
		LoginDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fithub_login_duration_ms",
			Help:    "Duration of login requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "fithub_sessions_expired_total",
			Help: "Sessions closed by the cleanup worker after the token lifetime",
		}),
	}
}

func (m *Metrics) IncrementUsersRegistered() { m.UsersRegistered.Inc() }

func (m *Metrics) RecordLogin(durationMs float64) {
	m.LoginsTotal.Inc()
	m.ActiveSessions.Inc()
	m.LoginDurationMs.Observe(durationMs)
}

// RecordSessionOpened counts a session opened outside Login (sign-up).
func (m *Metrics) RecordSessionOpened() { m.ActiveSessions.Inc() }

func (m *Metrics) RecordLogout(durationMinutes int) {
	m.LogoutsTotal.Inc()
	m.ActiveSessions.Dec()
	m.SessionDurationMinutes.Observe(float64(durationMinutes))
}

func (m *Metrics) IncrementAuthFailures(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordSessionsExpired(n int) {
	m.SessionsExpired.Add(float64(n))
	m.ActiveSessions.Sub(float64(n))
}
