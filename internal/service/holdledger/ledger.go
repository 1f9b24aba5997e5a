// Package holdledger opera o ledger de reservas: reserva na criação de
// transferências OUT, libera na aprovação parcial, rejeição e conclusão.
package holdledger

import (
	"context"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
)

const (
	DirectionReserve = "reserve"
	DirectionRelease = "release"
)

// Change é o efeito de uma operação no ledger. Só é registrado nas métricas
// depois do commit (Record).
type Change struct {
	Direction string
	Project   int
	Rack      int
}

// Ledger não abre transações: Reserve, Release e Available recebem a visão
// transacional da etapa em andamento. Summary é uma leitura isolada.
type Ledger struct {
	store     domain.Store
	metrics   *metrics.Collector
	logger    logger.Logger
	holdAware bool
}

// NewLedger cria o ledger. holdAware liga o desconto da reserva já existente
// no cálculo de disponibilidade para novas transferências.
func NewLedger(store domain.Store, collector *metrics.Collector, log logger.Logger, holdAware bool) *Ledger {
	if !holdAware {
		log.Warn("Disponibilidade ignora reservas pendentes; solicitações concorrentes podem exceder o estoque.",
			map[string]interface{}{"config": "HOLD_AWARE_AVAILABILITY"})
	}
	return &Ledger{store: store, metrics: collector, logger: log, holdAware: holdAware}
}

// Available trava a reserva (projeto, produto) e calcula quanto pode ser
// solicitado a partir do estoque dos racks do projeto.
func (l *Ledger) Available(ctx context.Context, tx domain.Tx, projectID, productID string) (int, error) {
	held, err := tx.LockProjectHold(ctx, projectID, productID)
	if err != nil {
		return 0, err
	}
	onHand, err := onHand(ctx, tx, projectID, productID)
	if err != nil {
		return 0, err
	}
	return domain.AvailableForTransfer(onHand, held, l.holdAware), nil
}

// Reserve soma a quantidade solicitada à reserva do projeto e, com fromRack, à do rack.
func (l *Ledger) Reserve(ctx context.Context, tx domain.HoldStore, t domain.Transfer) (Change, error) {
	change := Change{Direction: DirectionReserve}
	projectID, ok := t.FromProject.ID()
	if !t.ReservesStock() || !ok {
		return change, nil
	}

	if _, err := tx.AddProjectHold(ctx, projectID, t.ProductID, t.Quantity); err != nil {
		return change, err
	}
	change.Project = t.Quantity

	if t.FromRack != "" {
		if _, err := tx.AddRackHold(ctx, t.FromRack, projectID, t.ProductID, t.Quantity); err != nil {
			return change, err
		}
		change.Rack = t.Quantity
	}
	return change, nil
}

// Release libera até qty da reserva (projeto e, com fromRack, rack). Cada nível
// é limitado ao valor reservado no momento.
func (l *Ledger) Release(ctx context.Context, tx domain.HoldStore, t domain.Transfer, qty int) (Change, error) {
	change := Change{Direction: DirectionRelease}
	projectID, ok := t.FromProject.ID()
	if !t.ReservesStock() || !ok || qty <= 0 {
		return change, nil
	}

	released, err := tx.ReleaseProjectHold(ctx, projectID, t.ProductID, qty)
	if err != nil {
		return change, err
	}
	change.Project = released

	if t.FromRack != "" {
		released, err := tx.ReleaseRackHold(ctx, t.FromRack, projectID, t.ProductID, qty)
		if err != nil {
			return change, err
		}
		change.Rack = released
	}

	if change.Project < qty {
		l.logger.Warn("Liberação da reserva limitada ao valor reservado.", map[string]interface{}{
			"transfer_id": t.TransferID,
			"requested":   qty,
			"released":    change.Project,
		})
	}
	return change, nil
}

// Record registra nas métricas as mudanças de uma etapa já confirmada.
func (l *Ledger) Record(changes ...Change) {
	for _, c := range changes {
		l.metrics.HoldChanged(c.Direction, "project", c.Project)
		l.metrics.HoldChanged(c.Direction, "rack", c.Rack)
	}
}

// Summary consolida estoque em mãos, reservas e disponibilidade de (projeto, produto).
func (l *Ledger) Summary(ctx context.Context, projectID, productID string) (domain.StockSummary, error) {
	if projectID == "" || productID == "" {
		return domain.StockSummary{}, apperror.NewValidationError("projectId e productId são obrigatórios.")
	}

	var summary domain.StockSummary
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := tx.FindProject(ctx, projectID); err != nil {
			return err
		}
		if _, err := tx.FindProduct(ctx, productID); err != nil {
			return err
		}
		held, err := tx.ProjectHold(ctx, projectID, productID)
		if err != nil {
			return err
		}
		rackHolds, err := tx.RackHolds(ctx, projectID, productID)
		if err != nil {
			return err
		}
		total, err := onHand(ctx, tx, projectID, productID)
		if err != nil {
			return err
		}
		summary = domain.NewStockSummary(projectID, productID, total, held, rackHolds)
		return nil
	})
	if err != nil {
		return domain.StockSummary{}, err
	}
	return summary, nil
}

func onHand(ctx context.Context, racks domain.RackStore, projectID, productID string) (int, error) {
	list, err := racks.FindRacksByProjectAndProduct(ctx, projectID, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range list {
		total += r.StockOf(productID)
	}
	return total, nil
}
