package userrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorack/internal/pkg/logger"
)

func newRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db, time.Second, logger.NewNop()), mock
}

func TestFindEmailsByIDs(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id::text = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ana@gorack.io"))

	emails, err := repo.FindEmailsByIDs(context.Background(), []string{"u1", "desconhecido"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@gorack.io"}, emails)

	// Sem IDs não há consulta.
	emails, err = repo.FindEmailsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProjectManagerEmails(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("m.member_role = 'manager'")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@gorack.io").AddRow("b@gorack.io"))

	emails, err := repo.FindProjectManagerEmails(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@gorack.io", "b@gorack.io"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAdminEmails_DBError(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("role = 'admin'").WillReturnError(errors.New("conexão perdida"))

	_, err := repo.FindAdminEmails(context.Background())
	assert.Error(t, err)
}
