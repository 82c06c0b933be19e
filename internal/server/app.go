// Package server initializes and runs the tripmate development backend.
// It opens storage, seeds the demo account, wires the HTTP API and handles
// graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/tripmate/internal/common"
	"github.com/dmitrijs2005/tripmate/internal/logging"
	"github.com/dmitrijs2005/tripmate/internal/metrics"
	"github.com/dmitrijs2005/tripmate/internal/server/config"
	"github.com/dmitrijs2005/tripmate/internal/server/notifications"
	"github.com/dmitrijs2005/tripmate/internal/server/rest"
	"github.com/dmitrijs2005/tripmate/internal/server/storage"
	"github.com/dmitrijs2005/tripmate/internal/server/users"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	storage *storage.Storage
	server  *rest.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewServer(reg)

	ctx := context.Background()
	st, err := storage.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	us := users.NewService(st.Users(), 0)
	// A persistent store keeps the demo user from an earlier run.
	if _, err := us.Register(ctx, c.DemoName, c.DemoEmail, "USER", []byte(c.DemoPassword)); err != nil && !errors.Is(err, common.ErrAlreadyExists) {
		st.Close()
		return nil, fmt.Errorf("seeding demo user: %w", err)
	}

	s := rest.NewServer(c, logger, us, st.RefreshTokens(), notifications.NewHub(), rest.WithMetrics(m, reg))

	return &App{config: c, logger: logger, storage: st, server: s}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer app.storage.Close()

	app.logger.Info(ctx, "Starting app...", "demo_user", app.config.DemoEmail, "persistent", app.storage.Persistent())

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	return nil
}
