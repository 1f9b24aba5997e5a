// Package transferservice conduz o fluxo das transferências: criação, decisão
// (aprovação/rejeição) e conclusão. Cada etapa roda em uma única transação do
// Store; as notificações saem depois do commit.
package transferservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
	"gorack/internal/service/holdledger"
	"gorack/internal/service/movement"
	"gorack/internal/service/notification"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Dispatcher é o que o serviço usa do pacote notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.EmailEvent, t domain.Transfer) (notification.Outcome, error)
}

// CreateTransferInput são os dados de uma nova solicitação. Os projetos chegam
// como texto: um ID ou "EXTERNAL".
type CreateTransferInput struct {
	ProductID     string              `json:"productId" validate:"required"`
	FromProjectID string              `json:"fromProjectId" validate:"required"`
	ToProjectID   string              `json:"toProjectId" validate:"required"`
	FromRack      string              `json:"fromRack"`
	ToRack        string              `json:"toRack"`
	Type          domain.TransferType `json:"transferType" validate:"omitempty,oneof=OUT IN"`
	Quantity      int                 `json:"quantity" validate:"gt=0"`
	Reason        string              `json:"reason" validate:"max=500"`
	Actor         domain.Actor        `json:"actor"`
}

// DecideTransferInput aprova ou rejeita uma transferência pendente.
type DecideTransferInput struct {
	TransferID       string                `json:"transferId" validate:"required"`
	Status           domain.TransferStatus `json:"status" validate:"required"`
	ApprovedQuantity *float64              `json:"approvedQuantity"`
	Actor            domain.Actor          `json:"actor"`
}

// CompleteTransferInput conclui uma transferência aprovada. DestinationRack é
// usado em OUT e SourceRack em IN.
type CompleteTransferInput struct {
	TransferID      string       `json:"transferId" validate:"required"`
	DestinationRack string       `json:"destinationRack"`
	SourceRack      string       `json:"sourceRack"`
	Actor           domain.Actor `json:"actor"`
}

type Service struct {
	store      domain.Store
	ledger     *holdledger.Ledger
	executor   *movement.Executor
	dispatcher Dispatcher
	metrics    *metrics.Collector
	logger     logger.Logger
	validate   *validator.Validate
	now        func() time.Time
}

func NewService(store domain.Store, ledger *holdledger.Ledger, executor *movement.Executor, dispatcher Dispatcher, collector *metrics.Collector, log logger.Logger) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		executor:   executor,
		dispatcher: dispatcher,
		metrics:    collector,
		logger:     log,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// WithClock troca o relógio usado nos carimbos de tempo (testes).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateTransfer valida a solicitação, grava a transferência pendente e, para
// OUT com origem cadastrada, reserva a quantidade.
func (s *Service) CreateTransfer(ctx context.Context, in CreateTransferInput) (domain.Transfer, error) {
	started := time.Now()
	t, err := s.createTransfer(ctx, in)
	s.metrics.ObserveOperation("create", string(transferType(in.Type)), started, err)
	return t, err
}

func (s *Service) createTransfer(ctx context.Context, in CreateTransferInput) (domain.Transfer, error) {
	s.logger.Debug("Iniciando criação de transferência.", map[string]interface{}{
		"product_id": in.ProductID,
		"from":       in.FromProjectID,
		"to":         in.ToProjectID,
		"quantity":   in.Quantity,
	})

	if err := s.validateInput(in); err != nil {
		return domain.Transfer{}, err
	}
	from, err := domain.ParseProjectRef(in.FromProjectID)
	if err != nil {
		return domain.Transfer{}, apperror.NewValidationError("fromProjectId: " + err.Error())
	}
	to, err := domain.ParseProjectRef(in.ToProjectID)
	if err != nil {
		return domain.Transfer{}, apperror.NewValidationError("toProjectId: " + err.Error())
	}
	if from.IsExternal() && to.IsExternal() {
		return domain.Transfer{}, apperror.NewValidationError("Origem e destino não podem ser ambos EXTERNAL.")
	}
	if from.IsExternal() && in.FromRack != "" {
		return domain.Transfer{}, apperror.NewValidationError("fromRack não se aplica a origem EXTERNAL.")
	}
	if to.IsExternal() && in.ToRack != "" {
		return domain.Transfer{}, apperror.NewValidationError("toRack não se aplica a destino EXTERNAL.")
	}

	now := s.now().UTC()
	t := domain.Transfer{
		ID:              uuid.NewString(),
		TransferID:      domain.NewTransferID(now),
		ProductID:       in.ProductID,
		FromProject:     from,
		ToProject:       to,
		FromRack:        in.FromRack,
		ToRack:          in.ToRack,
		Type:            transferType(in.Type),
		Quantity:        in.Quantity,
		Status:          domain.StatusPending,
		Reason:          in.Reason,
		RequestedBy:     in.Actor.ID,
		RequestedByName: in.Actor.Name,
		RequestedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var reserved holdledger.Change
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		product, err := tx.FindProduct(ctx, t.ProductID)
		if err != nil {
			return err
		}

		var excluded []string
		for _, side := range []struct {
			ref  domain.ProjectRef
			rack string
		}{{from, t.FromRack}, {to, t.ToRack}} {
			projectID, known := side.ref.ID()
			if !known {
				continue
			}
			project, err := tx.FindProject(ctx, projectID)
			if err != nil {
				return err
			}
			if side.rack != "" && !project.HasRack(side.rack) {
				return apperror.NewNotFoundError(fmt.Sprintf("Rack %s não pertence ao projeto %s.", side.rack, projectID))
			}
			if !product.AllowsProject(project) {
				excluded = append(excluded, projectID)
			}
		}
		if len(excluded) > 0 {
			return apperror.NewValidationError("projects not included: " + strings.Join(excluded, ", "))
		}

		if sourceID, known := from.ID(); known {
			available, err := s.ledger.Available(ctx, tx, sourceID, t.ProductID)
			if err != nil {
				return err
			}
			if t.Quantity > available {
				return apperror.NewInsufficientStockError(fmt.Sprintf("projeto %s", sourceID), available, t.Quantity)
			}
		}

		if err := tx.InsertTransfer(ctx, t); err != nil {
			return err
		}
		reserved, err = s.ledger.Reserve(ctx, tx, t)
		return err
	})
	if err != nil {
		s.logger.Warn("Criação de transferência recusada.", map[string]interface{}{"product_id": in.ProductID, "error": err.Error()})
		return domain.Transfer{}, err
	}

	s.ledger.Record(reserved)
	s.logger.Info("Transferência criada.", map[string]interface{}{
		"transfer_id": t.TransferID,
		"type":        string(t.Type),
		"quantity":    t.Quantity,
		"reserved":    reserved.Project,
	})
	s.notify(ctx, domain.EmailEventCreated, t)
	return t, nil
}

// DecideTransfer aprova (total ou parcialmente) ou rejeita uma transferência
// pendente, liberando a parte da reserva que deixou de ser necessária. Reenviar
// a decisão que a transferência já tem não altera nada e só retenta a notificação.
func (s *Service) DecideTransfer(ctx context.Context, in DecideTransferInput) (domain.Transfer, error) {
	started := time.Now()
	t, err := s.decideTransfer(ctx, in)
	s.metrics.ObserveOperation("decide", string(t.Type), started, err)
	return t, err
}

func (s *Service) decideTransfer(ctx context.Context, in DecideTransferInput) (domain.Transfer, error) {
	if err := s.validateInput(in); err != nil {
		return domain.Transfer{}, err
	}
	if in.Status != domain.StatusApproved && in.Status != domain.StatusRejected {
		return domain.Transfer{}, apperror.NewValidationError(fmt.Sprintf("status deve ser approved ou rejected, recebido: %s", in.Status))
	}

	var (
		t        domain.Transfer
		released holdledger.Change
		replay   bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		t, err = tx.LockTransfer(ctx, in.TransferID)
		if err != nil {
			return err
		}
		if t.Status == in.Status {
			replay = true
			return nil
		}
		if t.Status != domain.StatusPending || !t.Status.CanTransitionTo(in.Status) {
			return apperror.NewValidationError(fmt.Sprintf("Transferência %s não está pendente (status atual: %s).", t.TransferID, t.Status))
		}

		now := s.now().UTC()
		switch in.Status {
		case domain.StatusApproved:
			approved := domain.EffectiveApprovedQuantity(t.Quantity, in.ApprovedQuantity)
			t.Approved = &approved
			t.ApprovedBy, t.ApprovedByName, t.ApprovedAt = in.Actor.ID, in.Actor.Name, &now
			released, err = s.ledger.Release(ctx, tx, t, domain.ReleaseOnApproval(t.Quantity, approved))
		case domain.StatusRejected:
			t.RejectedBy, t.RejectedByName, t.RejectedAt = in.Actor.ID, in.Actor.Name, &now
			released, err = s.ledger.Release(ctx, tx, t, t.Quantity)
		}
		if err != nil {
			return err
		}

		t.Status = in.Status
		t.UpdatedAt = now
		return tx.UpdateTransfer(ctx, t)
	})
	if err != nil {
		return domain.Transfer{}, err
	}

	if replay {
		s.logger.Info("Decisão repetida; transferência inalterada.", map[string]interface{}{"transfer_id": t.TransferID, "status": string(t.Status)})
	} else {
		s.ledger.Record(released)
		s.logger.Info("Transferência decidida.", map[string]interface{}{
			"transfer_id": t.TransferID,
			"status":      string(t.Status),
			"approved":    t.MoveQuantity(),
			"released":    released.Project,
		})
	}

	event := domain.EmailEventApproved
	if t.Status == domain.StatusRejected {
		event = domain.EmailEventRejected
	}
	s.notify(ctx, event, t)
	return t, nil
}

// CompleteTransfer movimenta o estoque físico de uma transferência aprovada e,
// em OUT, libera a reserva correspondente.
func (s *Service) CompleteTransfer(ctx context.Context, in CompleteTransferInput) (domain.Transfer, error) {
	started := time.Now()
	t, err := s.completeTransfer(ctx, in)
	s.metrics.ObserveOperation("complete", string(t.Type), started, err)
	return t, err
}

func (s *Service) completeTransfer(ctx context.Context, in CompleteTransferInput) (domain.Transfer, error) {
	if err := s.validateInput(in); err != nil {
		return domain.Transfer{}, err
	}

	var (
		t        domain.Transfer
		released holdledger.Change
		moved    movement.Result
		replay   bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		t, err = tx.LockTransfer(ctx, in.TransferID)
		if err != nil {
			return err
		}
		if t.Status == domain.StatusCompleted {
			replay = true
			return nil
		}
		if !t.Status.CanTransitionTo(domain.StatusCompleted) {
			return apperror.NewValidationError(fmt.Sprintf("Transferência %s precisa estar aprovada para ser concluída (status atual: %s).", t.TransferID, t.Status))
		}

		req, err := s.movementFor(ctx, tx, &t, in)
		if err != nil {
			return err
		}
		if moved, err = s.executor.Move(ctx, tx, req); err != nil {
			return err
		}
		if t.Type == domain.TransferOut {
			if released, err = s.ledger.Release(ctx, tx, t, req.Quantity); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		t.Status = domain.StatusCompleted
		t.CompletedBy, t.CompletedByName, t.CompletedAt = in.Actor.ID, in.Actor.Name, &now
		t.UpdatedAt = now
		return tx.UpdateTransfer(ctx, t)
	})
	if err != nil {
		s.logger.Warn("Conclusão de transferência recusada.", map[string]interface{}{"transfer_id": in.TransferID, "error": err.Error()})
		return domain.Transfer{}, err
	}

	if replay {
		s.logger.Info("Transferência já concluída; nada a fazer.", map[string]interface{}{"transfer_id": t.TransferID})
	} else {
		s.ledger.Record(released)
		s.metrics.UnitsMoved(string(t.Type), t.MoveQuantity())
		s.logger.Info("Transferência concluída.", map[string]interface{}{
			"transfer_id": t.TransferID,
			"moved":       t.MoveQuantity(),
			"racks":       len(moved.Deductions),
			"to_rack":     t.ToRack,
		})
	}
	s.notify(ctx, domain.EmailEventCompleted, t)
	return t, nil
}

// movementFor resolve origem e destino da conclusão e grava os racks resolvidos em t.
func (s *Service) movementFor(ctx context.Context, tx domain.Tx, t *domain.Transfer, in CompleteTransferInput) (movement.Request, error) {
	req := movement.Request{ProductID: t.ProductID, Quantity: t.MoveQuantity()}
	fromID, fromKnown := t.FromProject.ID()
	toID, toKnown := t.ToProject.ID()

	if t.Type == domain.TransferIn {
		if fromKnown {
			if in.SourceRack == "" {
				return req, apperror.NewValidationError("sourceRack é obrigatório para concluir transferência IN.")
			}
			if err := rackInProject(ctx, tx, fromID, in.SourceRack); err != nil {
				return req, err
			}
			if t.FromRack != "" && t.FromRack != in.SourceRack {
				return req, apperror.NewValidationError(fmt.Sprintf("Transferência já tem rack de origem %s.", t.FromRack))
			}
			t.FromRack = in.SourceRack
			req.SourceRackID = in.SourceRack
		}
		if toKnown {
			if t.ToRack == "" {
				return req, apperror.NewConfigurationError(fmt.Sprintf("Transferência %s não tem rack de destino configurado.", t.TransferID))
			}
			req.DestinationRackID = t.ToRack
		}
		return req, nil
	}

	if toKnown {
		if in.DestinationRack == "" {
			return req, apperror.NewValidationError("destinationRack é obrigatório para concluir transferência OUT.")
		}
		if err := rackInProject(ctx, tx, toID, in.DestinationRack); err != nil {
			return req, err
		}
		if t.ToRack != "" && t.ToRack != in.DestinationRack {
			return req, apperror.NewValidationError(fmt.Sprintf("Transferência já tem rack de destino %s.", t.ToRack))
		}
		t.ToRack = in.DestinationRack
		req.DestinationRackID = in.DestinationRack
	} else if in.DestinationRack != "" {
		return req, apperror.NewValidationError("destinationRack não se aplica a destino EXTERNAL.")
	}

	if fromKnown {
		if t.FromRack != "" {
			req.SourceRackID = t.FromRack
		} else {
			req.SourceProjectID = fromID
		}
	}
	return req, nil
}

func rackInProject(ctx context.Context, tx domain.Tx, projectID, rackID string) error {
	project, err := tx.FindProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.HasRack(rackID) {
		return apperror.NewNotFoundError(fmt.Sprintf("Rack %s não pertence ao projeto %s.", rackID, projectID))
	}
	return nil
}

func (s *Service) GetTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	if strings.TrimSpace(transferID) == "" {
		return domain.Transfer{}, apperror.NewValidationError("transferId é obrigatório.")
	}
	return s.store.FindTransfer(ctx, transferID)
}

// ListTransfers aplica os filtros opcionais; as mais recentes vêm primeiro.
func (s *Service) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.Transfer, error) {
	switch filter.Status {
	case "", domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusCompleted:
	default:
		return nil, apperror.NewValidationError(fmt.Sprintf("status inválido: %s", filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.store.ListTransfers(ctx, filter)
}

// notify nunca falha a etapa: o resultado só vai para o log.
func (s *Service) notify(ctx context.Context, event domain.EmailEvent, t domain.Transfer) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Dispatch(ctx, event, t); err != nil {
		s.logger.Warn("Notificação não entregue.", map[string]interface{}{
			"transfer_id": t.TransferID,
			"event":       string(event),
			"error":       err.Error(),
		})
	}
}

func transferType(t domain.TransferType) domain.TransferType {
	if t == "" {
		return domain.TransferOut
	}
	return t
}
