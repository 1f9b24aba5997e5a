package stockrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
)

func newRepo(t *testing.T) (*StockRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStockRepository(db, time.Second, logger.NewNop()), mock
}

func TestDecrementRackStock(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE rack_stock SET stock = stock - \\$3").
		WithArgs("r1", "x", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.DecrementRackStock(context.Background(), "r1", "x", 4))

	// Guarda stock >= qty não bateu: nenhuma linha alterada.
	mock.ExpectExec("UPDATE rack_stock").
		WithArgs("r1", "x", 40).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.DecrementRackStock(context.Background(), "r1", "x", 40)
	assert.IsType(t, &apperror.ConflictError{}, err)

	mock.ExpectExec("UPDATE rack_stock").WillReturnError(errors.New("conexão perdida"))
	err = repo.DecrementRackStock(context.Background(), "r1", "x", 1)
	assert.IsType(t, &apperror.InternalError{}, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementRackStock(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("INSERT INTO rack_stock .* ON CONFLICT \\(rack_id, product_id\\)").
		WithArgs("r2", "x", 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.IncrementRackStock(context.Background(), "r2", "x", 6))

	mock.ExpectExec("INSERT INTO rack_stock").WillReturnError(&pq.Error{Code: "23503"})
	err := repo.IncrementRackStock(context.Background(), "r9", "x", 1)
	assert.True(t, apperror.IsNotFound(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
