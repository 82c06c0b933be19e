// Package rest serves the tripmate backend API over HTTP: credential
// issuing, the user profile, notification REST endpoints and the
// notification event stream.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
	"github.com/dmitrijs2005/tripmate/internal/server/config"
	"github.com/dmitrijs2005/tripmate/internal/server/notifications"
	"github.com/dmitrijs2005/tripmate/internal/server/refreshtokens"
	"github.com/dmitrijs2005/tripmate/internal/server/users"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address    string
	logger     logging.Logger
	users      *users.Service
	tokens     refreshtokens.Repository
	hub        *notifications.Hub
	metrics    *metrics.Server
	gatherer   prometheus.Gatherer
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	keepalive  time.Duration
}

type Option func(*Server)

// WithMetrics records request outcomes in m and serves g on /metrics.
func WithMetrics(m *metrics.Server, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func NewServer(cfg *config.Config, l logging.Logger, us *users.Service, rt refreshtokens.Repository, hub *notifications.Hub, opts ...Option) *Server {
	s := &Server{
		address:    cfg.Addr,
		logger:     logging.OrNop(l).With("module", "http_server"),
		users:      us,
		tokens:     rt,
		hub:        hub,
		jwtSecret:  []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		keepalive:  cfg.KeepaliveInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post(common.PathLogin, s.login)
	r.Post(common.PathReissue, s.reissue)
	r.Post(common.PathToken, s.exchangeToken)
	r.Post(common.PathLogout, s.logout)

	r.Post(common.PathDevOAuth, s.devOAuth)
	r.Post(common.PathDevNotifications, s.devPublish)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)

		r.Get(common.PathMe, s.me)
		r.Get(common.PathUnread, s.unread)
		r.Get(common.PathUnreadCount, s.unreadCount)
		r.Patch(common.PathReadAll, s.markAllRead)
		r.Patch(common.PathNotifications+"/{id}/read", s.markRead)
		r.Get(common.PathNotificationStream, s.stream)
	})

	return r
}

// Run serves until ctx is cancelled. Request contexts derive from ctx, so
// open notification streams end with it.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "shutdown did not complete", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
