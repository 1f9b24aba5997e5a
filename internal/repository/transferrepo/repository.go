// Package transferrepo persiste os registros de transferência e seus marcadores de e-mail.
package transferrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

const columns = `id, transfer_id, product_id, from_project_id, to_project_id, from_rack, to_rack,
	transfer_type, quantity, approved_quantity, status, reason,
	requested_by, requested_by_name, requested_at,
	approved_by, approved_by_name, approved_at,
	rejected_by, rejected_by_name, rejected_at,
	completed_by, completed_by_name, completed_at,
	email_events, created_at, updated_at`

type TransferRepository struct {
	DB        database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

func NewTransferRepository(db database.Querier, dbTimeout time.Duration, log logger.Logger) *TransferRepository {
	return &TransferRepository{DB: db, DBTimeout: dbTimeout, logger: log}
}

func (r *TransferRepository) InsertTransfer(ctx context.Context, t domain.Transfer) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	events, err := marshalEvents(t.EmailEvents)
	if err != nil {
		return apperror.NewInternalError("Falha ao serializar marcadores de e-mail", err)
	}

	query := `INSERT INTO transfers (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`

	_, err = r.DB.ExecContext(ctxTimeout, query,
		t.ID, t.TransferID, t.ProductID, t.FromProject, t.ToProject,
		nullString(t.FromRack), nullString(t.ToRack),
		string(t.Type), t.Quantity, nullInt(t.Approved), string(t.Status), t.Reason,
		t.RequestedBy, t.RequestedByName, t.RequestedAt,
		t.ApprovedBy, t.ApprovedByName, nullTime(t.ApprovedAt),
		t.RejectedBy, t.RejectedByName, nullTime(t.RejectedAt),
		t.CompletedBy, t.CompletedByName, nullTime(t.CompletedAt),
		string(events), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.NewConflictError(fmt.Sprintf("Transferência %s já existe.", t.TransferID))
		}
		r.logger.Error("Falha ao inserir transferência.", err)
		return apperror.NewDBError("Falha ao inserir transferência", err)
	}
	return nil
}

// LockTransfer lê a transferência com FOR UPDATE.
func (r *TransferRepository) LockTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM transfers WHERE transfer_id = $1 FOR UPDATE`, transferID)
}

func (r *TransferRepository) FindTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM transfers WHERE transfer_id = $1`, transferID)
}

func (r *TransferRepository) findOne(ctx context.Context, query, transferID string) (domain.Transfer, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	t, err := scanTransfer(r.DB.QueryRowContext(ctxTimeout, query, transferID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transfer{}, apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar transferência.", err)
		return domain.Transfer{}, apperror.NewDBError("Falha ao buscar transferência", err)
	}
	return t, nil
}

// UpdateTransfer grava estado, quantidade aprovada, racks e trilha de
// auditoria. email_events não é tocado: só muda por ClaimEmailEvent/ReleaseEmailEvent.
func (r *TransferRepository) UpdateTransfer(ctx context.Context, t domain.Transfer) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		UPDATE transfers SET
			approved_quantity = $2, status = $3, from_rack = $4, to_rack = $5,
			approved_by = $6, approved_by_name = $7, approved_at = $8,
			rejected_by = $9, rejected_by_name = $10, rejected_at = $11,
			completed_by = $12, completed_by_name = $13, completed_at = $14,
			updated_at = $15
		WHERE transfer_id = $1`

	result, err := r.DB.ExecContext(ctxTimeout, query,
		t.TransferID, nullInt(t.Approved), string(t.Status), nullString(t.FromRack), nullString(t.ToRack),
		t.ApprovedBy, t.ApprovedByName, nullTime(t.ApprovedAt),
		t.RejectedBy, t.RejectedByName, nullTime(t.RejectedAt),
		t.CompletedBy, t.CompletedByName, nullTime(t.CompletedAt),
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar transferência.", err)
		return apperror.NewDBError("Falha ao atualizar transferência", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", t.TransferID))
	}
	return nil
}

// ListTransfers retorna as mais recentes primeiro.
func (r *TransferRepository) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.Transfer, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var where []string
	var args []interface{}
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id::text = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		where = append(where, fmt.Sprintf("(from_project_id::text = $%d OR to_project_id::text = $%d)", len(args), len(args)))
	}

	query := `SELECT ` + columns + ` FROM transfers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY requested_at DESC, transfer_id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar transferências.", err)
		return nil, apperror.NewDBError("Falha ao listar transferências", err)
	}
	defer rows.Close()

	out := []domain.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao ler transferência", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar transferências", err)
	}
	return out, nil
}

// ClaimEmailEvent grava o marcador só se ele ainda não existir (um único UPDATE
// condicional, atômico entre requisições concorrentes).
func (r *TransferRepository) ClaimEmailEvent(ctx context.Context, transferID string, event domain.EmailEvent) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		UPDATE transfers
		SET email_events = email_events || jsonb_build_object($2::text, to_jsonb(NOW()))
		WHERE transfer_id = $1 AND NOT (email_events ? $2)`

	result, err := r.DB.ExecContext(ctxTimeout, query, transferID, string(event))
	if err != nil {
		r.logger.Error("Falha ao gravar marcador de e-mail.", err)
		return false, apperror.NewDBError("Falha ao gravar marcador de e-mail", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperror.NewDBError("Falha ao verificar marcador de e-mail", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT EXISTS (SELECT 1 FROM transfers WHERE transfer_id = $1)`, transferID).Scan(&exists); err != nil {
		return false, apperror.NewDBError("Falha ao verificar transferência", err)
	}
	if !exists {
		return false, apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	return false, nil
}

func (r *TransferRepository) ReleaseEmailEvent(ctx context.Context, transferID string, event domain.EmailEvent) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `UPDATE transfers SET email_events = email_events - $2::text WHERE transfer_id = $1`
	if _, err := r.DB.ExecContext(ctxTimeout, query, transferID, string(event)); err != nil {
		r.logger.Error("Falha ao remover marcador de e-mail.", err)
		return apperror.NewDBError("Falha ao remover marcador de e-mail", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row scanner) (domain.Transfer, error) {
	var (
		t                                   domain.Transfer
		fromRack, toRack                    sql.NullString
		transferType, status                string
		approved                            sql.NullInt64
		approvedAt, rejectedAt, completedAt sql.NullTime
		events                              []byte
	)
	err := row.Scan(
		&t.ID, &t.TransferID, &t.ProductID, &t.FromProject, &t.ToProject, &fromRack, &toRack,
		&transferType, &t.Quantity, &approved, &status, &t.Reason,
		&t.RequestedBy, &t.RequestedByName, &t.RequestedAt,
		&t.ApprovedBy, &t.ApprovedByName, &approvedAt,
		&t.RejectedBy, &t.RejectedByName, &rejectedAt,
		&t.CompletedBy, &t.CompletedByName, &completedAt,
		&events, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Transfer{}, err
	}

	t.FromRack, t.ToRack = fromRack.String, toRack.String
	t.Type, t.Status = domain.TransferType(transferType), domain.TransferStatus(status)
	if approved.Valid {
		v := int(approved.Int64)
		t.Approved = &v
	}
	t.ApprovedAt = timePtr(approvedAt)
	t.RejectedAt = timePtr(rejectedAt)
	t.CompletedAt = timePtr(completedAt)

	if len(events) > 0 {
		if err := json.Unmarshal(events, &t.EmailEvents); err != nil {
			return domain.Transfer{}, fmt.Errorf("email_events inválido: %w", err)
		}
	}
	return t, nil
}

func marshalEvents(events map[domain.EmailEvent]time.Time) ([]byte, error) {
	if len(events) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(events)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
