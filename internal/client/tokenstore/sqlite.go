package tokenstore

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tripmate/internal/dbx"
	"github.com/dmitrijs2005/tripmate/internal/logging"
)

const (
	keyCredential = "access"
	keySavedAt    = "access_saved_at"

	persistTimeout = 2 * time.Second
)

// SQLiteStore is a MemoryStore mirrored into the local metadata table so
// the credential survives a restart on the same machine. The in-memory
// copy is authoritative: a failed write is logged and the process keeps
// working with the value it has.
type SQLiteStore struct {
	// mu orders writes so the persisted copy matches the last memory write.
	mu  sync.Mutex
	mem MemoryStore
	db  *sql.DB
	log logging.Logger
}

// NewSQLiteStore loads any previously persisted credential from db.
func NewSQLiteStore(ctx context.Context, db *sql.DB, log logging.Logger) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, log: logging.OrNop(log)}

	value, err := metadata.NewSQLiteRepository(db).Get(ctx, keyCredential)
	if err != nil {
		return nil, err
	}
	s.mem.Set(string(value))
	return s, nil
}

func (s *SQLiteStore) Get() (string, bool) {
	return s.mem.Get()
}

func (s *SQLiteStore) Set(credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.Set(credential)
	s.persist(credential)
}

func (s *SQLiteStore) Replace(old, next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mem.Replace(old, next) {
		return false
	}
	s.persist(next)
	return true
}

func (s *SQLiteStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem.Clear()
	s.persist("")
}

// persist mirrors credential to disk; empty removes the stored copy.
// Callers hold s.mu.
func (s *SQLiteStore) persist(credential string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if credential == "" {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := metadata.NewSQLiteRepository(tx)
			if err := repo.Delete(ctx, keyCredential); err != nil {
				return err
			}
			return repo.Delete(ctx, keySavedAt)
		})
		if err != nil {
			s.log.Warn(ctx, "persisted credential not removed", "error", err)
		}
		return
	}

	savedAt := strconv.FormatInt(time.Now().Unix(), 10)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyCredential, []byte(credential)); err != nil {
			return err
		}
		return repo.Set(ctx, keySavedAt, []byte(savedAt))
	})
	if err != nil {
		s.log.Warn(ctx, "credential not persisted", "error", err)
	}
}

// SavedAt reports when the current credential was last persisted.
func (s *SQLiteStore) SavedAt(ctx context.Context) (time.Time, bool) {
	raw, err := metadata.NewSQLiteRepository(s.db).Get(ctx, keySavedAt)
	if err != nil || raw == nil {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
