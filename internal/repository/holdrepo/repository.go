// Package holdrepo persiste o ledger de reservas (project_holds e rack_holds).
package holdrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

type HoldRepository struct {
	DB        database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

func NewHoldRepository(db database.Querier, dbTimeout time.Duration, log logger.Logger) *HoldRepository {
	return &HoldRepository{DB: db, DBTimeout: dbTimeout, logger: log}
}

// LockProjectHold garante a linha (projeto, produto) e a bloqueia com FOR UPDATE.
func (r *HoldRepository) LockProjectHold(ctx context.Context, projectID, productID string) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const ensure = `
		INSERT INTO project_holds (project_id, product_id, held, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (project_id, product_id) DO NOTHING`
	if _, err := r.DB.ExecContext(ctxTimeout, ensure, projectID, productID); err != nil {
		r.logger.Error("Falha ao garantir linha de reserva do projeto.", err)
		return 0, apperror.NewDBError("Falha ao garantir reserva do projeto", err)
	}

	const lock = `SELECT held FROM project_holds WHERE project_id = $1 AND product_id = $2 FOR UPDATE`
	var held int
	if err := r.DB.QueryRowContext(ctxTimeout, lock, projectID, productID).Scan(&held); err != nil {
		r.logger.Error("Falha ao bloquear reserva do projeto.", err)
		return 0, apperror.NewDBError("Falha ao bloquear reserva do projeto", err)
	}
	return held, nil
}

func (r *HoldRepository) AddProjectHold(ctx context.Context, projectID, productID string, qty int) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		INSERT INTO project_holds (project_id, product_id, held, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (project_id, product_id)
		DO UPDATE SET held = project_holds.held + EXCLUDED.held, updated_at = NOW()
		RETURNING held`

	var held int
	if err := r.DB.QueryRowContext(ctxTimeout, query, projectID, productID, qty).Scan(&held); err != nil {
		r.logger.Error("Falha ao reservar estoque do projeto.", err)
		return 0, apperror.NewDBError("Falha ao reservar estoque do projeto", err)
	}
	return held, nil
}

// ReleaseProjectHold libera até qty e retorna quanto foi liberado.
func (r *HoldRepository) ReleaseProjectHold(ctx context.Context, projectID, productID string, qty int) (int, error) {
	const lock = `SELECT held FROM project_holds WHERE project_id = $1 AND product_id = $2 FOR UPDATE`
	const update = `
		UPDATE project_holds
		SET held = GREATEST(held - $3, 0), updated_at = NOW()
		WHERE project_id = $1 AND product_id = $2`
	return r.release(ctx, lock, update, qty, projectID, productID)
}

func (r *HoldRepository) AddRackHold(ctx context.Context, rackID, projectID, productID string, qty int) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		INSERT INTO rack_holds (rack_id, project_id, product_id, held, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (rack_id, project_id, product_id)
		DO UPDATE SET held = rack_holds.held + EXCLUDED.held, updated_at = NOW()
		RETURNING held`

	var held int
	if err := r.DB.QueryRowContext(ctxTimeout, query, rackID, projectID, productID, qty).Scan(&held); err != nil {
		r.logger.Error("Falha ao reservar estoque do rack.", err)
		return 0, apperror.NewDBError("Falha ao reservar estoque do rack", err)
	}
	return held, nil
}

func (r *HoldRepository) ReleaseRackHold(ctx context.Context, rackID, projectID, productID string, qty int) (int, error) {
	const lock = `SELECT held FROM rack_holds WHERE rack_id = $1 AND project_id = $2 AND product_id = $3 FOR UPDATE`
	const update = `
		UPDATE rack_holds
		SET held = GREATEST(held - $4, 0), updated_at = NOW()
		WHERE rack_id = $1 AND project_id = $2 AND product_id = $3`
	return r.release(ctx, lock, update, qty, rackID, projectID, productID)
}

// release lê a linha bloqueada, limita a liberação ao valor reservado e aplica.
// A quantidade liberada vai como último parâmetro do UPDATE.
func (r *HoldRepository) release(ctx context.Context, lock, update string, qty int, keys ...interface{}) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var held int
	err := r.DB.QueryRowContext(ctxTimeout, lock, keys...).Scan(&held)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Falha ao bloquear reserva para liberação.", err)
		return 0, apperror.NewDBError("Falha ao bloquear reserva", err)
	}

	released := domain.ClampRelease(qty, held)
	if released == 0 {
		return 0, nil
	}
	if released < qty {
		r.logger.Warn("Liberação maior que a reserva; limitando.", map[string]interface{}{"requested": qty, "held": held})
	}

	args := append(append([]interface{}{}, keys...), released)
	if _, err := r.DB.ExecContext(ctxTimeout, update, args...); err != nil {
		r.logger.Error("Falha ao liberar reserva.", err)
		return 0, apperror.NewDBError("Falha ao liberar reserva", err)
	}
	return released, nil
}

func (r *HoldRepository) ProjectHold(ctx context.Context, projectID, productID string) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `SELECT held FROM project_holds WHERE project_id = $1 AND product_id = $2`
	var held int
	err := r.DB.QueryRowContext(ctxTimeout, query, projectID, productID).Scan(&held)
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) {
		return 0, nil
	}
	if err != nil {
		return 0, apperror.NewDBError("Falha ao ler reserva do projeto", err)
	}
	return held, nil
}

func (r *HoldRepository) RackHolds(ctx context.Context, projectID, productID string) ([]domain.RackHold, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		SELECT rack_id, project_id, product_id, held, updated_at
		FROM rack_holds
		WHERE project_id = $1 AND product_id = $2
		ORDER BY rack_id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, projectID, productID)
	if database.IsInvalidInput(err) {
		return []domain.RackHold{}, nil
	}
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar reservas por rack", err)
	}
	defer rows.Close()

	holds := []domain.RackHold{}
	for rows.Next() {
		var h domain.RackHold
		if err := rows.Scan(&h.RackID, &h.ProjectID, &h.ProductID, &h.Held, &h.UpdatedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao ler reserva por rack", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar reservas por rack", err)
	}
	return holds, nil
}
