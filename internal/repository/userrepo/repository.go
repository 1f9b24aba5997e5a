package userrepo

import (
	"context"
	"time"

	"github.com/lib/pq"

	apperror "gorack/internal/errors"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

// UserRepository resolve e-mails de destinatários a partir de users e project_members.
// O cadastro de usuários e a autenticação ficam fora deste serviço.
type UserRepository struct {
	DB        database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db database.Querier, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// FindEmailsByIDs ignora IDs desconhecidos.
func (r *UserRepository) FindEmailsByIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT email FROM users WHERE id::text = ANY($1) ORDER BY email`
	return r.emails(ctx, query, pq.Array(ids))
}

func (r *UserRepository) FindAdminEmails(ctx context.Context) ([]string, error) {
	const query = `SELECT email FROM users WHERE role = 'admin' ORDER BY email`
	return r.emails(ctx, query)
}

func (r *UserRepository) FindProjectManagerEmails(ctx context.Context, projectID string) ([]string, error) {
	const query = `
		SELECT u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id::text = $1 AND m.member_role = 'manager'
		ORDER BY u.email`
	return r.emails(ctx, query, projectID)
}

func (r *UserRepository) FindProjectUserEmails(ctx context.Context, projectID string) ([]string, error) {
	const query = `
		SELECT u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id::text = $1
		ORDER BY u.email`
	return r.emails(ctx, query, projectID)
}

func (r *UserRepository) emails(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao buscar e-mails de destinatários.", err)
		return nil, apperror.NewDBError("Falha ao buscar e-mails", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, apperror.NewDBError("Falha ao ler e-mail", err)
		}
		if email != "" {
			out = append(out, email)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar e-mails", err)
	}

	r.logger.Debug("E-mails resolvidos.", map[string]interface{}{"count": len(out)})
	return out, nil
}
