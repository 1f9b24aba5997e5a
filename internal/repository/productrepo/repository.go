package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

// ProductRepository lê o catálogo de produtos. O cadastro é feito fora deste serviço.
type ProductRepository struct {
	DB        database.Querier // *sql.DB ou *sql.Tx
	Cache     cache.Client
	CacheTTL  time.Duration
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
func NewProductRepository(db database.Querier, cacheClient cache.Client, cacheTTL, dbTimeout time.Duration, log logger.Logger) *ProductRepository {
	if cacheClient == nil {
		cacheClient = cache.Noop{}
	}
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		CacheTTL:  cacheTTL,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// FindProduct busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindProduct(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)
	var product domain.Product

	// --- Cache-Aside (READ) ---
	cached, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		if json.Unmarshal([]byte(cached), &product) == nil {
			return product, nil
		}
		r.logger.Warn("Entrada de cache de produto corrompida.", map[string]interface{}{"product_id": id})
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("Falha ao ler cache de produto.", map[string]interface{}{"product_id": id, "error": err.Error()})
	}

	const query = `
		SELECT id, sku, name, included_projects, created_at
		FROM products
		WHERE id = $1`

	err = r.DB.QueryRowContext(ctxTimeout, query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		pq.Array(&product.IncludedProjects),
		&product.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidInput(err) {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao buscar produto no DB", err)
	}

	// --- Cache-Aside (WRITE) ---
	if payload, marshalErr := json.Marshal(product); marshalErr == nil {
		if setErr := r.Cache.Set(ctxTimeout, key, payload, r.CacheTTL); setErr != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"product_id": id, "error": setErr.Error()})
		}
	}

	return product, nil
}

// Invalidate remove o produto do cache (e.g., após mudança da allow-list).
func (r *ProductRepository) Invalidate(ctx context.Context, id string) error {
	return r.Cache.Delete(ctx, fmt.Sprintf(productCacheKey, id))
}
