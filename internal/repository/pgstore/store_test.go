package pgstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil, Options{DBTimeout: time.Second, CacheTTL: time.Minute}, logger.NewNop()), mock
}

func TestWithinTx_CommitsAllRepositoriesOnSameTx(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO project_holds").WithArgs("p1", "x").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT held FROM project_holds").WithArgs("p1", "x").
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(2))
	mock.ExpectExec("UPDATE rack_stock").WithArgs("r1", "x", 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		held, err := tx.LockProjectHold(ctx, "p1", "x")
		if err != nil {
			return err
		}
		assert.Equal(t, 2, held)
		return tx.DecrementRackStock(ctx, "r1", "x", 3)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnGuardFailure(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rack_stock").WithArgs("r1", "x", 30).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.DecrementRackStock(ctx, "r1", "x", 30)
	})

	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkersUseTheConnectionPool(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta("NOT (email_events ? $2)")).
		WithArgs("TRF-1", "created").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.ClaimEmailEvent(context.Background(), "TRF-1", domain.EmailEventCreated)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
