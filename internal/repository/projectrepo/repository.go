package projectrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

const projectCacheKey = "project:%s"

// ProjectRepository lê projetos e racks. Os projetos (com a lista de racks) são
// cacheados; o estoque dos racks é sempre lido do banco.
type ProjectRepository struct {
	DB        database.Querier
	Cache     cache.Client
	CacheTTL  time.Duration
	DBTimeout time.Duration
	logger    logger.Logger
}

func NewProjectRepository(db database.Querier, cacheClient cache.Client, cacheTTL, dbTimeout time.Duration, log logger.Logger) *ProjectRepository {
	if cacheClient == nil {
		cacheClient = cache.Noop{}
	}
	return &ProjectRepository{
		DB:        db,
		Cache:     cacheClient,
		CacheTTL:  cacheTTL,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// FindProject busca o projeto e os IDs dos seus racks.
func (r *ProjectRepository) FindProject(ctx context.Context, id string) (domain.Project, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(projectCacheKey, id)
	var project domain.Project

	if cached, err := r.Cache.Get(ctxTimeout, key); err == nil {
		if json.Unmarshal([]byte(cached), &project) == nil {
			return project, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("Falha ao ler cache de projeto.", map[string]interface{}{"project_id": id, "error": err.Error()})
	}

	const query = `SELECT id, name, is_lobby, created_at FROM projects WHERE id = $1`
	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(&project.ID, &project.Name, &project.IsLobby, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) {
		return domain.Project{}, apperror.NewNotFoundError(fmt.Sprintf("Projeto com ID %s não existe.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar projeto no DB.", err)
		return domain.Project{}, apperror.NewDBError("Falha ao buscar projeto", err)
	}

	const racksQuery = `SELECT id FROM racks WHERE project_id = $1 ORDER BY created_at, rack_number`
	rows, err := r.DB.QueryContext(ctxTimeout, racksQuery, id)
	if err != nil {
		r.logger.Error("Falha ao listar racks do projeto.", err)
		return domain.Project{}, apperror.NewDBError("Falha ao listar racks do projeto", err)
	}
	defer rows.Close()

	project.RackIDs = []string{}
	for rows.Next() {
		var rackID string
		if err := rows.Scan(&rackID); err != nil {
			return domain.Project{}, apperror.NewDBError("Falha ao ler rack do projeto", err)
		}
		project.RackIDs = append(project.RackIDs, rackID)
	}
	if err := rows.Err(); err != nil {
		return domain.Project{}, apperror.NewDBError("Falha ao iterar racks do projeto", err)
	}

	if payload, marshalErr := json.Marshal(project); marshalErr == nil {
		if setErr := r.Cache.Set(ctxTimeout, key, payload, r.CacheTTL); setErr != nil {
			r.logger.Warn("Falha ao gravar projeto no cache.", map[string]interface{}{"project_id": id, "error": setErr.Error()})
		}
	}
	return project, nil
}

// FindRack busca o rack com todas as entradas de estoque.
func (r *ProjectRepository) FindRack(ctx context.Context, rackID string) (domain.Rack, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var rack domain.Rack
	const query = `SELECT id, project_id, rack_number, created_at FROM racks WHERE id = $1`
	err := r.DB.QueryRowContext(ctxTimeout, query, rackID).Scan(&rack.ID, &rack.ProjectID, &rack.Number, &rack.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) {
		return domain.Rack{}, apperror.NewNotFoundError(fmt.Sprintf("Rack %s não existe.", rackID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar rack no DB.", err)
		return domain.Rack{}, apperror.NewDBError("Falha ao buscar rack", err)
	}

	const stockQuery = `SELECT product_id, stock FROM rack_stock WHERE rack_id = $1 ORDER BY product_id`
	rows, err := r.DB.QueryContext(ctxTimeout, stockQuery, rackID)
	if err != nil {
		r.logger.Error("Falha ao buscar estoque do rack.", err)
		return domain.Rack{}, apperror.NewDBError("Falha ao buscar estoque do rack", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.RackProduct
		if err := rows.Scan(&p.ProductID, &p.Stock); err != nil {
			return domain.Rack{}, apperror.NewDBError("Falha ao ler estoque do rack", err)
		}
		rack.Products = append(rack.Products, p)
	}
	if err := rows.Err(); err != nil {
		return domain.Rack{}, apperror.NewDBError("Falha ao iterar estoque do rack", err)
	}
	return rack, nil
}

// FindRacksByProjectAndProduct retorna, na ordem FIFO, os racks do projeto com
// entrada para o produto, bloqueando as linhas de estoque até o fim da transação.
// Products de cada rack contém apenas a entrada do produto consultado.
func (r *ProjectRepository) FindRacksByProjectAndProduct(ctx context.Context, projectID, productID string) ([]domain.Rack, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		SELECT r.id, r.project_id, r.rack_number, r.created_at, rs.stock
		FROM racks r
		JOIN rack_stock rs ON rs.rack_id = r.id
		WHERE r.project_id = $1 AND rs.product_id = $2
		ORDER BY r.created_at, r.rack_number
		FOR UPDATE OF rs`

	rows, err := r.DB.QueryContext(ctxTimeout, query, projectID, productID)
	if database.IsInvalidInput(err) {
		return []domain.Rack{}, nil
	}
	if err != nil {
		r.logger.Error("Falha ao listar racks por projeto e produto.", err)
		return nil, apperror.NewDBError("Falha ao listar racks", err)
	}
	defer rows.Close()

	racks := []domain.Rack{}
	for rows.Next() {
		var rack domain.Rack
		var stock int
		if err := rows.Scan(&rack.ID, &rack.ProjectID, &rack.Number, &rack.CreatedAt, &stock); err != nil {
			return nil, apperror.NewDBError("Falha ao ler rack", err)
		}
		rack.Products = []domain.RackProduct{{ProductID: productID, Stock: stock}}
		racks = append(racks, rack)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar racks", err)
	}
	return racks, nil
}

// Invalidate remove o projeto do cache (e.g., após cadastro de rack).
func (r *ProjectRepository) Invalidate(ctx context.Context, id string) error {
	return r.Cache.Delete(ctx, fmt.Sprintf(projectCacheKey, id))
}
