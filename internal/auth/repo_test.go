package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return &Repo{DB: mock}, mock
}

func TestRepoInsert_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u-1", "ann@shop.test", "hash", "customer").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Insert(context.Background(), User{ID: "u-1", Email: "ann@shop.test", PasswordHash: "hash", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepoByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("ann@shop.test").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}).
			AddRow("u-1", "ann@shop.test", "hash", "admin", now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("ghost@shop.test").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}))

	u, err := repo.ByEmail(context.Background(), "ann@shop.test")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	_, err = repo.ByEmail(context.Background(), "ghost@shop.test")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepoSetRole_UnknownEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role=$2 WHERE email=$1`)).
		WithArgs("ghost@shop.test", "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.SetRole(context.Background(), "ghost@shop.test", RoleAdmin), ErrUserNotFound)
}
