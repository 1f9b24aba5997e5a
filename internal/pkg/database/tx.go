package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Querier é satisfeito tanto por *sql.DB quanto por *sql.Tx, permitindo que o
// mesmo repositório rode dentro ou fora de uma transação.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// RunInTx executa fn em uma transação: commit se fn retornar nil, rollback caso contrário.
func RunInTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("falha ao commitar transação: %w", err)
	}
	return nil
}

// Códigos SQLSTATE usados pelos repositórios.
const (
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeForeignKeyViolation = "23503"
	codeInvalidTextRepr     = "22P02"
)

// IsUniqueViolation reporta se err é uma violação de UNIQUE do Postgres.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsCheckViolation reporta se err é uma violação de CHECK (e.g., estoque negativo).
func IsCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation)
}

// IsForeignKeyViolation reporta se err referencia uma linha inexistente.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsInvalidInput reporta se o Postgres rejeitou o formato de um parâmetro
// (e.g., id que não é UUID). Os repositórios tratam isso como "não encontrado".
func IsInvalidInput(err error) bool {
	return hasCode(err, codeInvalidTextRepr)
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
