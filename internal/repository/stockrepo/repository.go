package stockrepo

import (
	"context"
	"fmt"
	"time"

	"gorack/internal/errors"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
)

// StockRepository altera o estoque físico de rack_stock. As alterações são
// incrementos/decrementos atômicos; nunca uma leitura seguida de SET absoluto.
type StockRepository struct {
	DB        database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db database.Querier, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// DecrementRackStock baixa qty do rack. Se o estoque atual não cobrir qty a linha
// não é alterada e o retorno é ConflictError.
func (r *StockRepository) DecrementRackStock(ctx context.Context, rackID, productID string, qty int) error {
	r.logger.Debug("Baixando estoque do rack.", map[string]interface{}{"rack_id": rackID, "product_id": productID, "qty": qty})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		UPDATE rack_stock
		SET stock = stock - $3, updated_at = NOW()
		WHERE rack_id = $1 AND product_id = $2 AND stock >= $3`

	result, err := r.DB.ExecContext(ctxTimeout, query, rackID, productID, qty)
	if err != nil {
		r.logger.Error("Falha ao baixar estoque do rack.", err)
		return errors.NewDBError("Falha ao baixar estoque", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Estoque do rack não cobre a baixa.", map[string]interface{}{"rack_id": rackID, "product_id": productID, "qty": qty})
		return errors.NewConflictError(fmt.Sprintf("Estoque do rack %s mudou durante a operação.", rackID))
	}
	return nil
}

// IncrementRackStock soma qty ao rack, criando a entrada do produto se necessário.
func (r *StockRepository) IncrementRackStock(ctx context.Context, rackID, productID string, qty int) error {
	r.logger.Debug("Creditando estoque no rack.", map[string]interface{}{"rack_id": rackID, "product_id": productID, "qty": qty})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		INSERT INTO rack_stock (rack_id, product_id, stock, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (rack_id, product_id)
		DO UPDATE SET stock = rack_stock.stock + EXCLUDED.stock, updated_at = NOW()`

	if _, err := r.DB.ExecContext(ctxTimeout, query, rackID, productID, qty); err != nil {
		if database.IsForeignKeyViolation(err) || database.IsInvalidInput(err) {
			return errors.NewNotFoundError(fmt.Sprintf("Rack %s ou produto %s não existe.", rackID, productID))
		}
		r.logger.Error("Falha ao creditar estoque no rack.", err)
		return errors.NewDBError("Falha ao creditar estoque", err)
	}
	return nil
}
