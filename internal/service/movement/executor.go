// Package movement aplica a movimentação física de estoque entre racks.
package movement

import (
	"context"
	"fmt"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
)

// Request descreve uma movimentação. Sem SourceProjectID e sem SourceRackID a
// origem é EXTERNAL (só crédito); sem DestinationRackID o destino é EXTERNAL
// (só débito).
type Request struct {
	ProductID string
	Quantity  int
	// SourceRackID, quando informado, é a única origem.
	SourceRackID string
	// SourceProjectID é usado no FIFO quando SourceRackID está vazio.
	SourceProjectID   string
	DestinationRackID string
}

// Deduction é uma baixa planejada em um rack.
type Deduction struct {
	RackID     string
	RackNumber string
	Quantity   int
}

// Result descreve o que foi aplicado.
type Result struct {
	Deductions        []Deduction
	DestinationRackID string
	Credited          int
}

type Executor struct {
	logger logger.Logger
}

func NewExecutor(log logger.Logger) *Executor {
	return &Executor{logger: log}
}

// Move planeja as baixas e só então escreve: se o plano não cobre a quantidade
// nenhum rack é alterado. Deve rodar dentro da transação do chamador.
func (e *Executor) Move(ctx context.Context, racks domain.RackStore, req Request) (Result, error) {
	if req.Quantity <= 0 {
		return Result{}, apperror.NewValidationError("A quantidade movimentada deve ser maior que zero.")
	}

	plan, err := e.plan(ctx, racks, req)
	if err != nil {
		return Result{}, err
	}

	for _, d := range plan {
		if err := racks.DecrementRackStock(ctx, d.RackID, req.ProductID, d.Quantity); err != nil {
			return Result{}, err
		}
	}

	result := Result{Deductions: plan}
	if req.DestinationRackID != "" {
		if err := racks.IncrementRackStock(ctx, req.DestinationRackID, req.ProductID, req.Quantity); err != nil {
			return Result{}, err
		}
		result.DestinationRackID = req.DestinationRackID
		result.Credited = req.Quantity
	}

	e.logger.Debug("Movimentação aplicada.", map[string]interface{}{
		"product_id":  req.ProductID,
		"quantity":    req.Quantity,
		"deductions":  len(plan),
		"destination": req.DestinationRackID,
	})
	return result, nil
}

func (e *Executor) plan(ctx context.Context, racks domain.RackStore, req Request) ([]Deduction, error) {
	switch {
	case req.SourceRackID != "":
		rack, err := racks.FindRack(ctx, req.SourceRackID)
		if err != nil {
			return nil, err
		}
		if available := rack.StockOf(req.ProductID); available < req.Quantity {
			return nil, apperror.NewInsufficientStockError(fmt.Sprintf("rack %s", rack.Number), available, req.Quantity)
		}
		return []Deduction{{RackID: rack.ID, RackNumber: rack.Number, Quantity: req.Quantity}}, nil

	case req.SourceProjectID != "":
		candidates, err := racks.FindRacksByProjectAndProduct(ctx, req.SourceProjectID, req.ProductID)
		if err != nil {
			return nil, err
		}
		return planFIFO(candidates, req.ProductID, req.Quantity)

	default:
		return nil, nil
	}
}

// planFIFO consome os racks na ordem recebida até cobrir qty.
func planFIFO(candidates []domain.Rack, productID string, qty int) ([]Deduction, error) {
	var plan []Deduction
	remaining, total := qty, 0
	for _, rack := range candidates {
		stock := rack.StockOf(productID)
		if stock <= 0 {
			continue
		}
		total += stock
		if remaining == 0 {
			continue
		}
		take := stock
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Deduction{RackID: rack.ID, RackNumber: rack.Number, Quantity: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, apperror.NewInsufficientStockError("racks do projeto", total, qty)
	}
	return plan, nil
}
