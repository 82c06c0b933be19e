package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/tripmate/internal/client/client"
	"github.com/dmitrijs2005/tripmate/internal/client/config"
	"github.com/dmitrijs2005/tripmate/internal/client/idle"
	"github.com/dmitrijs2005/tripmate/internal/client/models"
	"github.com/dmitrijs2005/tripmate/internal/client/services"
	"github.com/dmitrijs2005/tripmate/internal/client/stream"
	"github.com/dmitrijs2005/tripmate/internal/client/tokenstore"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
)

// closeTimeout bounds how long exit waits for a background logout call.
const closeTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	tokens   *tokenstore.SQLiteStore
	api      *client.HTTPClient
	idle     *idle.Monitor
	channel  *stream.Channel
	session  *services.SessionController
	notes    *services.NotificationStore
	reader   *bufio.Reader
	out      io.Writer
	unsubs   []func()
	closed   sync.Once
}

// NewApp wires the client for interactive use on the terminal. Logs go
// to stderr so they do not interleave with prompts.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdin, os.Stdout, logging.NewTextLogger(os.Stderr, c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.StorePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing session store: %w", err)
	}

	tokens, err := tokenstore.NewSQLiteStore(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewClient(registry)

	mon := idle.New(idle.WithCoalesce(c.IdleCoalesce))

	api, err := client.NewHTTPClient(c.ServerURL, tokens,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(logger.With("module", "http_client")),
		client.WithMetrics(m),
		client.WithActivityHook(mon.Touch),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	ch := stream.New(api, tokens,
		stream.WithReconnectDelay(c.ReconnectDelay),
		stream.WithMaxAttempts(c.MaxReconnectAttempts),
		stream.WithLogger(logger.With("module", "stream")),
		stream.WithMetrics(m),
	)

	session := services.NewSessionController(api, tokens,
		services.WithIdleMonitor(mon, c.IdleTimeout),
		services.WithSessionLogger(logger.With("module", "session")),
		services.WithSessionMetrics(m),
	)

	notes := services.NewNotificationStore(api, ch,
		services.WithSyncInterval(c.SyncInterval),
		services.WithNotificationLogger(logger.With("module", "notifications")),
	)

	a := &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: registry,
		tokens:   tokens,
		api:      api,
		idle:     mon,
		channel:  ch,
		session:  session,
		notes:    notes,
		reader:   bufio.NewReader(in),
		out:      out,
	}
	a.unsubs = append(a.unsubs,
		notes.Attach(session),
		session.Subscribe(a.onSessionEvent),
		notes.OnNotification(a.onNotification),
	)
	return a, nil
}

// Run resumes a stored session if there is one, then runs the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	printlnFn("Welcome to tripmate (type 'help' for commands)")

	if err := a.session.CheckStartupSession(ctx); err != nil {
		printlnFn("Your previous session has ended, please log in again.")
	} else if s := a.session.State(); s.LoggedIn() {
		printlnFn(fmt.Sprintf("Welcome back, %s.", s.User.Name))
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Close releases everything NewApp acquired. The session stays stored so
// the next start can resume it. Close is idempotent.
func (a *App) Close() {
	a.closed.Do(a.close)
}

func (a *App) close() {
	for _, unsub := range a.unsubs {
		unsub()
	}

	a.notes.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.session.Close(ctx); err != nil {
		a.logger.Warn(ctx, "logout still pending at exit", "error", err)
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warn(ctx, "closing session store", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State().LoggedIn()
}

// touch records user input as activity.
func (a *App) touch() {
	a.idle.Touch()
}

func (a *App) getStatus() string {
	s := a.session.State()
	if !s.LoggedIn() {
		return "(logged out)"
	}
	return fmt.Sprintf("(%s, %d unread, %s)", s.User.Email, a.notes.UnreadCount(), a.notes.ChannelState())
}

func (a *App) onSessionEvent(ev services.SessionEvent) {
	if ev.Kind != services.SessionEnded {
		return
	}
	switch ev.Reason {
	case services.EndIdle:
		printlnFn("You were logged out after a period of inactivity. Please log in again.")
	case services.EndExpired:
		printlnFn("Your session has expired. Please log in again.")
	}
}

func (a *App) onNotification(n models.Notification) {
	printlnFn(fmt.Sprintf("New notification: [%s] %s", n.Type, n.Title))
}
