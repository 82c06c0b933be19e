package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tripmate/internal/common"
)

var userColumns = []string{"id", "name", "email", "role", "password_hash", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s+\(name,\s*email,\s*role,\s*password_hash\).*RETURNING\s+id,\s*created_at`).
		WithArgs("Ann", "ann@example.com", "USER", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), created))

	u, err := repo.Create(context.Background(), &User{Name: "Ann", Email: " Ann@Example.com", Role: "USER", PasswordHash: []byte("hash")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, Message: "duplicate key"})

	_, err := repo.Create(context.Background(), &User{Email: "ann@example.com"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("boom"))
	_, err = repo.Create(context.Background(), &User{Email: "bob@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrAlreadyExists)
}

func TestPostgresRepository_GetUserByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+lower\(email\)\s*=\s*\$1`).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(3), "Ann", "ann@example.com", "USER", []byte("hash"), created))
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+lower\(email\)`).
		WithArgs("bob@example.com").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetUserByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 3, Name: "Ann", Email: "ann@example.com", Role: "USER", PasswordHash: []byte("hash"), CreatedAt: created}, u)

	_, err = repo.GetUserByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetUserByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(3), "Ann", "ann@example.com", "USER", []byte("hash"), time.Now()))
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).
		WithArgs(int64(4)).
		WillReturnError(errors.New("conn reset"))

	u, err := repo.GetUserByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	_, err = repo.GetUserByID(context.Background(), 4)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
