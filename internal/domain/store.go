package domain

import (
	"context"
	"time"
)

// CatalogReader lê o modelo de inventário externo (produtos e projetos).
type CatalogReader interface {
	FindProduct(ctx context.Context, id string) (Product, error)
	FindProject(ctx context.Context, id string) (Project, error)
}

// RackStore lê e altera o estoque físico dos racks. Toda alteração é um
// incremento/decremento atômico pela chave natural (rack, produto).
type RackStore interface {
	FindRack(ctx context.Context, rackID string) (Rack, error)
	// FindRacksByProjectAndProduct lista os racks do projeto que têm entrada para o
	// produto, na ordem do cadastro (data de criação, depois número do rack).
	FindRacksByProjectAndProduct(ctx context.Context, projectID, productID string) ([]Rack, error)
	// DecrementRackStock falha com ConflictError se o estoque atual for menor que qty.
	DecrementRackStock(ctx context.Context, rackID, productID string, qty int) error
	// IncrementRackStock cria a entrada do produto no rack se ela não existir.
	IncrementRackStock(ctx context.Context, rackID, productID string, qty int) error
}

// HoldStore é o ledger de reservas. Liberações nunca deixam o contador negativo
// e retornam quanto foi efetivamente liberado.
type HoldStore interface {
	// LockProjectHold garante a linha (projeto, produto), bloqueia-a até o fim da
	// transação e retorna o valor reservado.
	LockProjectHold(ctx context.Context, projectID, productID string) (int, error)
	AddProjectHold(ctx context.Context, projectID, productID string, qty int) (int, error)
	ReleaseProjectHold(ctx context.Context, projectID, productID string, qty int) (int, error)
	AddRackHold(ctx context.Context, rackID, projectID, productID string, qty int) (int, error)
	ReleaseRackHold(ctx context.Context, rackID, projectID, productID string, qty int) (int, error)
	ProjectHold(ctx context.Context, projectID, productID string) (int, error)
	RackHolds(ctx context.Context, projectID, productID string) ([]RackHold, error)
}

// TransferStore persiste os registros de transferência.
type TransferStore interface {
	InsertTransfer(ctx context.Context, t Transfer) error
	// LockTransfer lê a transferência bloqueando-a até o fim da transação.
	LockTransfer(ctx context.Context, transferID string) (Transfer, error)
	UpdateTransfer(ctx context.Context, t Transfer) error
}

// Tx é a visão transacional usada por uma etapa do fluxo: todas as alterações
// feitas por meio dela são confirmadas ou desfeitas juntas.
type Tx interface {
	CatalogReader
	RackStore
	HoldStore
	TransferStore
}

// EmailMarkers guarda os marcadores de idempotência das notificações.
type EmailMarkers interface {
	// ClaimEmailEvent grava o marcador se ele ainda não existir e reporta se esta
	// chamada foi a que gravou.
	ClaimEmailEvent(ctx context.Context, transferID string, event EmailEvent) (bool, error)
	// ReleaseEmailEvent remove um marcador reivindicado cujo envio falhou.
	ReleaseEmailEvent(ctx context.Context, transferID string, event EmailEvent) error
}

// Store é a fronteira de persistência do motor de transferências.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	FindTransfer(ctx context.Context, transferID string) (Transfer, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]Transfer, error)
	EmailMarkers
}

// UserDirectory resolve e-mails de destinatários.
type UserDirectory interface {
	FindEmailsByIDs(ctx context.Context, ids []string) ([]string, error)
	FindAdminEmails(ctx context.Context) ([]string, error)
	FindProjectManagerEmails(ctx context.Context, projectID string) ([]string, error)
	FindProjectUserEmails(ctx context.Context, projectID string) ([]string, error)
}

// Recipients agrupa os destinatários de uma notificação.
type Recipients struct {
	To             []string `json:"to"`
	ActionRequired []string `json:"actionRequired,omitempty"`
	Informed       []string `json:"informed,omitempty"`
}

// Empty reporta se não há nenhum destinatário.
func (r Recipients) Empty() bool {
	return len(r.To) == 0 && len(r.ActionRequired) == 0 && len(r.Informed) == 0
}

// NotificationEvent é o que o colaborador de notificação recebe.
type NotificationEvent struct {
	ID         string     `json:"id"`
	Type       EmailEvent `json:"type"`
	TransferID string     `json:"transferId"`
	Transfer   Transfer   `json:"transfer"`
	Recipients Recipients `json:"recipients"`
	OccurredAt time.Time  `json:"occurredAt"`
}
