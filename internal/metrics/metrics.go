// Package metrics holds the Prometheus collectors for the session client
// and the dev backend.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "tripmate"

// Client counts session-lifecycle events on the client side. A nil
// *Client is valid and records nothing.
type Client struct {
	Reissues          prometheus.Counter
	ReissueFailures   prometheus.Counter
	Replays           *prometheus.CounterVec
	StreamConnects    prometheus.Counter
	StreamReconnects  prometheus.Counter
	StreamGiveUps     prometheus.Counter
	StreamDropped     prometheus.Counter
	NotificationsSeen prometheus.Counter
	IdleLogouts       prometheus.Counter
}

// NewClient creates the client collectors and registers them with reg.
func NewClient(reg prometheus.Registerer) *Client {
	m := &Client{
		Reissues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client", Name: "reissues_total",
			Help: "Credential reissue calls sent to the backend.",
		}),
		ReissueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client", Name: "reissue_failures_total",
			Help: "Reissue calls that ended the session.",
		}),
		Replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client", Name: "replays_total",
			Help: "Requests replayed after a credential refresh.",
		}, []string{"path"}),
		StreamConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "connects_total",
			Help: "Notification stream connections that reached the open state.",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "reconnects_total",
			Help: "Reconnect attempts scheduled after the stream ended.",
		}),
		StreamGiveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "give_ups_total",
			Help: "Times the reconnect bound was exhausted.",
		}),
		StreamDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "dropped_records_total",
			Help: "Malformed or unknown stream records that were skipped.",
		}),
		NotificationsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notifications", Name: "received_total",
			Help: "Notifications delivered over the stream.",
		}),
		IdleLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "idle_logouts_total",
			Help: "Sessions ended by the inactivity timer.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Reissues, m.ReissueFailures, m.Replays, m.StreamConnects,
			m.StreamReconnects, m.StreamGiveUps, m.StreamDropped, m.NotificationsSeen, m.IdleLogouts)
	}
	return m
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

func (m *Client) Reissue() {
	if m != nil {
		inc(m.Reissues)
	}
}

func (m *Client) ReissueFailed() {
	if m != nil {
		inc(m.ReissueFailures)
	}
}

func (m *Client) Replay(path string) {
	if m != nil && m.Replays != nil {
		m.Replays.WithLabelValues(path).Inc()
	}
}

func (m *Client) StreamOpened() {
	if m != nil {
		inc(m.StreamConnects)
	}
}

func (m *Client) StreamReconnect() {
	if m != nil {
		inc(m.StreamReconnects)
	}
}

func (m *Client) StreamGaveUp() {
	if m != nil {
		inc(m.StreamGiveUps)
	}
}

func (m *Client) StreamDrop() {
	if m != nil {
		inc(m.StreamDropped)
	}
}

func (m *Client) NotificationReceived() {
	if m != nil {
		inc(m.NotificationsSeen)
	}
}

func (m *Client) IdleLogout() {
	if m != nil {
		inc(m.IdleLogouts)
	}
}
