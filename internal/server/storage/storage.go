// Package storage selects where the backend keeps users and refresh
// sessions: PostgreSQL when a DSN is configured, process memory otherwise.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/tripmate/internal/server/migrations"
	"github.com/dmitrijs2005/tripmate/internal/server/refreshtokens"
	"github.com/dmitrijs2005/tripmate/internal/server/users"
)

type Storage struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

// Test seams.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
)

func NewMemory() *Storage {
	return &Storage{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

// Open connects to dsn and migrates the schema. An empty dsn yields
// in-memory storage.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return NewMemory(), nil
	}

	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	return &Storage{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *Storage) Users() users.Repository {
	return s.users
}

func (s *Storage) RefreshTokens() refreshtokens.Repository {
	return s.refreshTokens
}

// Persistent reports whether data outlives the process.
func (s *Storage) Persistent() bool {
	return s.db != nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
