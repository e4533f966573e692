package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Query kinds used as label values.
const (
	QueryIssuer  = "issuer"
	QueryBalance = "balance"
)

// SessionMetrics records reconciler activity. A nil *SessionMetrics is valid
// and records nothing.
type SessionMetrics struct {
	accountChanges *prometheus.CounterVec
	queries        *prometheus.CounterVec
	staleResults   *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	connected      prometheus.Gauge
}

// NewSessionMetrics creates the session collectors and registers them with reg.
func NewSessionMetrics(namespace string, reg prometheus.Registerer) (*SessionMetrics, error) {
	m := &SessionMetrics{
		accountChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "account_changes_total",
			Help:      "Account change notifications handled, by resulting transition.",
		}, []string{"transition"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "queries_total",
			Help:      "Derived-state queries completed, by query kind and outcome.",
		}, []string{"query", "outcome"}),
		staleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_total",
			Help:      "Query results discarded because the session moved to another address.",
		}, []string{"query"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "notifications_total",
			Help:      "User-facing notifications emitted, by kind.",
		}, []string{"kind"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connected",
			Help:      "1 while a wallet account is connected.",
		}),
	}

	for _, c := range []prometheus.Collector{m.accountChanges, m.queries, m.staleResults, m.notifications, m.connected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SessionMetrics) AccountChange(transition string) {
	if m == nil {
		return
	}
	m.accountChanges.WithLabelValues(transition).Inc()
}

func (m *SessionMetrics) Query(query string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.queries.WithLabelValues(query, outcome).Inc()
}

func (m *SessionMetrics) StaleResult(query string) {
	if m == nil {
		return
	}
	m.staleResults.WithLabelValues(query).Inc()
}

func (m *SessionMetrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *SessionMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
