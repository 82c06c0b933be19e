// Package stream maintains the server-push notification connection.
//
// A Channel opens GET /api/notifications/stream through the HTTP client
// (so the access credential travels the same way as on ordinary calls),
// parses the event stream and fans notifications out to subscribers.
// When the stream ends it reconnects after a fixed delay, up to a bounded
// number of consecutive failures, after which it reports StateOffline and
// waits for an explicit Connect.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultMaxAttempts    = 5

	EventConnect      = "connect"
	EventKeepalive    = "keepalive"
	EventNotification = "notification"

	readBufferSize = 4096
)

var ErrClosedByServer = errors.New("notification stream closed by server")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateError
	// StateOffline means the reconnect bound was exhausted.
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateError:
		return "error"
	case StateOffline:
		return "offline"
	}
	return "unknown"
}

// Streamer opens the long-lived response. *client.HTTPClient implements it.
type Streamer interface {
	Stream(ctx context.Context, path string) (*http.Response, error)
}

// Credentials reports whether an access credential is present.
type Credentials interface {
	Get() (string, bool)
}

type Option func(*Channel)

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithMaxAttempts sets how many consecutive stream failures are tolerated
// before the channel goes offline.
func WithMaxAttempts(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Channel) { c.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Client) Option {
	return func(c *Channel) { c.metrics = m }
}

func WithPath(path string) Option {
	return func(c *Channel) { c.path = path }
}

type Channel struct {
	streamer    Streamer
	tokens      Credentials
	log         logging.Logger
	metrics     *metrics.Client
	delay       time.Duration
	maxAttempts int
	path        string

	// gen changes on every connect and disconnect. A read loop only
	// dispatches while the generation it was started with is current.
	gen atomic.Uint64
	// dispatchMu is held shared for each dispatch and exclusively by
	// Disconnect, so no handler runs once Disconnect has returned.
	dispatchMu sync.RWMutex

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	timer    *time.Timer
	failures int

	nextID    int
	handlers  map[int]func(models.Notification)
	listeners map[int]func(State)
}

func New(streamer Streamer, tokens Credentials, opts ...Option) *Channel {
	c := &Channel{
		streamer:    streamer,
		tokens:      tokens,
		log:         logging.NopLogger{},
		delay:       DefaultReconnectDelay,
		maxAttempts: DefaultMaxAttempts,
		path:        common.PathNotificationStream,
		handlers:    make(map[int]func(models.Notification)),
		listeners:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for every delivered notification. fn runs on the
// read goroutine and must not call Disconnect.
func (c *Channel) Subscribe(fn func(models.Notification)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

// OnStateChange registers fn for state transitions.
func (c *Channel) OnStateChange(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the stream. It is a no-op while connecting or open and
// when no credential is present. An explicit Connect clears the failure
// count, so it also resumes a channel that went offline.
func (c *Channel) Connect() {
	c.mu.Lock()
	c.failures = 0
	changed := c.connectLocked()
	c.mu.Unlock()

	if changed {
		c.announce(StateConnecting)
	}
}

func (c *Channel) connectLocked() bool {
	if c.state == StateConnecting || c.state == StateOpen {
		return false
	}
	if _, ok := c.tokens.Get(); !ok {
		return false
	}

	c.stopTimerLocked()
	gen := c.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateConnecting

	go c.run(ctx, gen)
	return true
}

// Disconnect aborts the stream and any pending reconnect. It is safe to
// call in any state. When it returns no handler is running and none will
// run until the next Connect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	gen := c.gen.Add(1)
	c.stopTimerLocked()
	cancel := c.cancel
	c.cancel = nil
	c.failures = 0
	active := c.state != StateIdle
	if active {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !active {
		return
	}
	c.announce(StateClosing)

	// Wait out a dispatch that passed its generation check before the bump.
	c.dispatchMu.Lock()
	c.dispatchMu.Unlock()

	c.mu.Lock()
	idle := c.gen.Load() == gen && c.state == StateClosing
	if idle {
		c.state = StateIdle
	}
	c.mu.Unlock()

	if idle {
		c.announce(StateIdle)
	}
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) announce(s State) {
	c.mu.Lock()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (c *Channel) run(ctx context.Context, gen uint64) {
	resp, err := c.streamer.Stream(ctx, c.path)
	if err != nil {
		c.ended(gen, err)
		return
	}
	defer resp.Body.Close()

	if !c.opened(gen) {
		return
	}
	c.ended(gen, c.read(gen, resp.Body))
}

func (c *Channel) opened(gen uint64) bool {
	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return false
	}
	c.state = StateOpen
	c.failures = 0
	c.mu.Unlock()

	c.metrics.StreamOpened()
	c.log.Info(context.Background(), "notification stream open")
	c.announce(StateOpen)
	return true
}

func (c *Channel) read(gen uint64, body io.Reader) error {
	var p Parser
	buf := make([]byte, readBufferSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			events, perr := p.Feed(buf[:n])
			if perr != nil {
				c.metrics.StreamDrop()
				c.log.Warn(context.Background(), "dropping stream line", "error", perr)
			}
			for _, ev := range events {
				if !c.dispatch(gen, ev) {
					return nil
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrClosedByServer
			}
			return err
		}
	}
}

// dispatch delivers ev to subscribers. It returns false once the read
// loop's generation is no longer current.
func (c *Channel) dispatch(gen uint64, ev Event) bool {
	c.dispatchMu.RLock()
	defer c.dispatchMu.RUnlock()

	if c.gen.Load() != gen {
		return false
	}

	ctx := context.Background()
	switch ev.Name {
	case EventConnect, EventKeepalive:
		return true
	case EventNotification:
	default:
		c.metrics.StreamDrop()
		c.log.Debug(ctx, "ignoring stream event", "event", ev.Name)
		return true
	}

	var n models.Notification
	if err := json.Unmarshal(ev.Data, &n); err != nil {
		c.metrics.StreamDrop()
		c.log.Warn(ctx, "dropping malformed notification", "id", ev.ID, "error", err)
		return true
	}

	c.mu.Lock()
	fns := make([]func(models.Notification), 0, len(c.handlers))
	for _, fn := range c.handlers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.metrics.NotificationReceived()
	for _, fn := range fns {
		fn(n)
	}
	return true
}

// ended handles the end of a stream that was not stopped by Disconnect.
func (c *Channel) ended(gen uint64, err error) {
	ctx := context.Background()

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if errors.Is(err, common.ErrSessionExpired) || errors.Is(err, common.ErrNoCredential) {
		c.state = StateIdle
		c.mu.Unlock()
		c.log.Info(ctx, "notification stream closed, no session", "error", err)
		c.announce(StateIdle)
		return
	}

	c.failures++
	if c.failures >= c.maxAttempts {
		c.state = StateOffline
		failures := c.failures
		c.mu.Unlock()

		c.metrics.StreamGaveUp()
		c.log.Warn(ctx, "notification stream offline, reconnect limit reached", "failures", failures, "error", err)
		c.announce(StateOffline)
		return
	}

	c.state = StateError
	c.timer = time.AfterFunc(c.delay, func() { c.reconnect(gen) })
	failures := c.failures
	c.mu.Unlock()

	c.metrics.StreamReconnect()
	c.log.Info(ctx, "notification stream ended, reconnecting", "failures", failures, "delay", c.delay, "error", err)
	c.announce(StateError)
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if c.gen.Load() != gen || c.state != StateError {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	changed := c.connectLocked()
	if !changed {
		c.state = StateIdle
	}
	c.mu.Unlock()

	if changed {
		c.announce(StateConnecting)
	} else {
		c.announce(StateIdle)
	}
}
