package metrics

import "github.com/prometheus/client_golang/prometheus"

// Server counts dev backend traffic by endpoint outcome.
type Server struct {
	Logins        *prometheus.CounterVec
	Reissues      *prometheus.CounterVec
	StreamClients prometheus.Gauge
	Published     prometheus.Counter
}

func NewServer(reg prometheus.Registerer) *Server {
	m := &Server{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Reissues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "reissues_total",
			Help: "Reissue requests by result.",
		}, []string{"result"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server", Name: "stream_clients",
			Help: "Open notification streams.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server", Name: "notifications_published_total",
			Help: "Notifications created.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Logins, m.Reissues, m.StreamClients, m.Published)
	}
	return m
}

func (m *Server) Login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Server) Reissue(result string) {
	if m != nil {
		m.Reissues.WithLabelValues(result).Inc()
	}
}

func (m *Server) StreamOpened() {
	if m != nil {
		m.StreamClients.Inc()
	}
}

func (m *Server) StreamClosed() {
	if m != nil {
		m.StreamClients.Dec()
	}
}

func (m *Server) Publish() {
	if m != nil {
		m.Published.Inc()
	}
}
