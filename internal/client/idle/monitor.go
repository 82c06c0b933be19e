// Package idle implements the inactivity timer that ends a session.
package idle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCoalesce is the minimum spacing between timer resets.
const DefaultCoalesce = time.Second

type Option func(*Monitor)

// WithCoalesce sets the minimum interval between timer resets caused by
// activity. Activity in between is still recorded.
func WithCoalesce(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.coalesce = d
		}
	}
}

// Monitor fires a callback once after a period without activity. A stopped
// monitor owns no timer and ignores activity.
type Monitor struct {
	coalesce time.Duration

	mu        sync.Mutex
	armed     bool
	gen       uint64
	timeout   time.Duration
	onIdle    func()
	timer     *time.Timer
	last      time.Time
	sometimes *rate.Sometimes
}

func New(opts ...Option) *Monitor {
	m := &Monitor{coalesce: DefaultCoalesce}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start arms the monitor. onIdle runs on its own goroutine once timeout
// has passed without Touch; the monitor then disarms itself. Starting an
// armed monitor replaces the previous timeout and callback.
func (m *Monitor) Start(timeout time.Duration, onIdle func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	m.armed = true
	m.gen++
	gen := m.gen
	m.timeout = timeout
	m.onIdle = onIdle
	m.last = time.Now()
	m.sometimes = &rate.Sometimes{Interval: m.coalesce}
	m.timer = time.AfterFunc(timeout, func() { m.expire(gen) })
}

// Stop disarms the monitor. A pending callback will not run.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.armed = false
	m.onIdle = nil
	m.sometimes = nil
}

// Touch records activity. It is cheap enough to call on every input event.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.armed {
		return
	}
	m.last = time.Now()
	m.sometimes.Do(func() { m.timer.Reset(m.timeout) })
}

func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// TimeRemaining reports how long until the callback fires if no further
// activity arrives, or zero when disarmed.
func (m *Monitor) TimeRemaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.armed {
		return 0
	}
	return max(m.timeout-time.Since(m.last), 0)
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	if !m.armed || m.gen != gen {
		m.mu.Unlock()
		return
	}

	// A coalesced Touch may have skipped the reset; honour the latest
	// activity before firing.
	if remaining := m.timeout - time.Since(m.last); remaining > 0 {
		m.timer.Reset(remaining)
		m.mu.Unlock()
		return
	}

	fn := m.onIdle
	m.timer = nil
	m.armed = false
	m.onIdle = nil
	m.sometimes = nil
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}
