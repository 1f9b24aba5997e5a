package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
)

// tx implementa domain.Tx sobre um clone do estado.
type tx struct {
	state state
	now   func() time.Time
}

func (t *tx) FindProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", id))
	}
	return cloneProduct(p), nil
}

func (t *tx) FindProject(_ context.Context, id string) (domain.Project, error) {
	p, ok := t.state.projects[id]
	if !ok {
		return domain.Project{}, apperror.NewNotFoundError(fmt.Sprintf("Projeto com ID %s não existe.", id))
	}
	return cloneProject(p), nil
}

func (t *tx) FindRack(_ context.Context, rackID string) (domain.Rack, error) {
	r, ok := t.state.racks[rackID]
	if !ok {
		return domain.Rack{}, apperror.NewNotFoundError(fmt.Sprintf("Rack %s não existe.", rackID))
	}
	return cloneRack(r), nil
}

func (t *tx) FindRacksByProjectAndProduct(_ context.Context, projectID, productID string) ([]domain.Rack, error) {
	var out []domain.Rack
	for _, r := range t.state.racks {
		if r.ProjectID != projectID {
			continue
		}
		for _, p := range r.Products {
			if p.ProductID == productID {
				out = append(out, cloneRack(r))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (t *tx) DecrementRackStock(_ context.Context, rackID, productID string, qty int) error {
	r, ok := t.state.racks[rackID]
	if !ok {
		return apperror.NewNotFoundError(fmt.Sprintf("Rack %s não existe.", rackID))
	}
	for i := range r.Products {
		if r.Products[i].ProductID != productID {
			continue
		}
		if r.Products[i].Stock < qty {
			return apperror.NewConflictError(fmt.Sprintf("Estoque do rack %s mudou durante a operação.", r.Number))
		}
		r.Products[i].Stock -= qty
		t.state.racks[rackID] = r
		return nil
	}
	return apperror.NewConflictError(fmt.Sprintf("Rack %s não tem entrada para o produto %s.", r.Number, productID))
}

func (t *tx) IncrementRackStock(_ context.Context, rackID, productID string, qty int) error {
	r, ok := t.state.racks[rackID]
	if !ok {
		return apperror.NewNotFoundError(fmt.Sprintf("Rack %s não existe.", rackID))
	}
	for i := range r.Products {
		if r.Products[i].ProductID == productID {
			r.Products[i].Stock += qty
			t.state.racks[rackID] = r
			return nil
		}
	}
	r.Products = append(r.Products, domain.RackProduct{ProductID: productID, Stock: qty})
	t.state.racks[rackID] = r
	return nil
}

// --- HoldStore ---

func (t *tx) LockProjectHold(_ context.Context, projectID, productID string) (int, error) {
	key := holdKey{projectID, productID}
	h, ok := t.state.projectHolds[key]
	if !ok {
		h = domain.ProjectHold{ProjectID: projectID, ProductID: productID, UpdatedAt: t.now().UTC()}
		t.state.projectHolds[key] = h
	}
	return h.Held, nil
}

func (t *tx) AddProjectHold(_ context.Context, projectID, productID string, qty int) (int, error) {
	key := holdKey{projectID, productID}
	h := t.state.projectHolds[key]
	h.ProjectID, h.ProductID = projectID, productID
	h.Held += qty
	h.UpdatedAt = t.now().UTC()
	t.state.projectHolds[key] = h
	return h.Held, nil
}

func (t *tx) ReleaseProjectHold(_ context.Context, projectID, productID string, qty int) (int, error) {
	key := holdKey{projectID, productID}
	h, ok := t.state.projectHolds[key]
	if !ok {
		return 0, nil
	}
	released := domain.ClampRelease(qty, h.Held)
	h.Held -= released
	h.UpdatedAt = t.now().UTC()
	t.state.projectHolds[key] = h
	return released, nil
}

func (t *tx) AddRackHold(_ context.Context, rackID, projectID, productID string, qty int) (int, error) {
	key := rackHoldKey{rackID, projectID, productID}
	h := t.state.rackHolds[key]
	h.RackID, h.ProjectID, h.ProductID = rackID, projectID, productID
	h.Held += qty
	h.UpdatedAt = t.now().UTC()
	t.state.rackHolds[key] = h
	return h.Held, nil
}

func (t *tx) ReleaseRackHold(_ context.Context, rackID, projectID, productID string, qty int) (int, error) {
	key := rackHoldKey{rackID, projectID, productID}
	h, ok := t.state.rackHolds[key]
	if !ok {
		return 0, nil
	}
	released := domain.ClampRelease(qty, h.Held)
	h.Held -= released
	h.UpdatedAt = t.now().UTC()
	t.state.rackHolds[key] = h
	return released, nil
}

func (t *tx) ProjectHold(_ context.Context, projectID, productID string) (int, error) {
	return t.state.projectHolds[holdKey{projectID, productID}].Held, nil
}

func (t *tx) RackHolds(_ context.Context, projectID, productID string) ([]domain.RackHold, error) {
	var out []domain.RackHold
	for k, h := range t.state.rackHolds {
		if k.projectID == projectID && k.productID == productID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RackID < out[j].RackID })
	return out, nil
}

// --- TransferStore ---

func (t *tx) InsertTransfer(_ context.Context, tr domain.Transfer) error {
	if _, exists := t.state.transfers[tr.TransferID]; exists {
		return apperror.NewConflictError(fmt.Sprintf("Transferência %s já existe.", tr.TransferID))
	}
	t.state.transfers[tr.TransferID] = cloneTransfer(tr)
	t.state.transferOrder = append(t.state.transferOrder, tr.TransferID)
	return nil
}

func (t *tx) LockTransfer(_ context.Context, transferID string) (domain.Transfer, error) {
	tr, ok := t.state.transfers[transferID]
	if !ok {
		return domain.Transfer{}, apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	return cloneTransfer(tr), nil
}

// UpdateTransfer preserva os marcadores de e-mail gravados, que só mudam por ClaimEmailEvent.
func (t *tx) UpdateTransfer(_ context.Context, tr domain.Transfer) error {
	current, ok := t.state.transfers[tr.TransferID]
	if !ok {
		return apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", tr.TransferID))
	}
	updated := cloneTransfer(tr)
	updated.EmailEvents = current.EmailEvents
	t.state.transfers[tr.TransferID] = updated
	return nil
}
