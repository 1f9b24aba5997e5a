package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransferType define de onde sai o estoque e quando ele é comprometido.
// OUT reserva na criação; IN só consome a origem na conclusão.
type TransferType string

const (
	TransferOut TransferType = "OUT"
	TransferIn  TransferType = "IN"
)

func (t TransferType) Valid() bool { return t == TransferOut || t == TransferIn }

// TransferStatus é o estado da transferência.
type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"
	StatusApproved  TransferStatus = "approved"
	StatusRejected  TransferStatus = "rejected"
	StatusCompleted TransferStatus = "completed"
)

var transitions = map[TransferStatus][]TransferStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransitionTo aplica a máquina de estados:
// pending → approved|rejected, approved → completed; rejected e completed são terminais.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// EmailEvent é o tipo de evento notificável; cada um tem no máximo um marcador por transferência.
type EmailEvent string

const (
	EmailEventCreated   EmailEvent = "created"
	EmailEventApproved  EmailEvent = "approved"
	EmailEventRejected  EmailEvent = "rejected"
	EmailEventCompleted EmailEvent = "completed"
)

// Transfer é o registro de auditoria de uma movimentação. Nunca é apagado.
type Transfer struct {
	ID          string         `json:"id"`
	TransferID  string         `json:"transferId"`
	ProductID   string         `json:"productId"`
	FromProject ProjectRef     `json:"fromProjectId"`
	ToProject   ProjectRef     `json:"toProjectId"`
	FromRack    string         `json:"fromRack,omitempty"`
	ToRack      string         `json:"toRack,omitempty"`
	Type        TransferType   `json:"transferType"`
	Quantity    int            `json:"quantity"`
	Approved    *int           `json:"approvedQuantity,omitempty"`
	Status      TransferStatus `json:"status"`
	Reason      string         `json:"reason,omitempty"`

	RequestedBy     string    `json:"requestedBy"`
	RequestedByName string    `json:"requestedByName,omitempty"`
	RequestedAt     time.Time `json:"requestedAt"`

	ApprovedBy     string     `json:"approvedBy,omitempty"`
	ApprovedByName string     `json:"approvedByName,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`

	RejectedBy     string     `json:"rejectedBy,omitempty"`
	RejectedByName string     `json:"rejectedByName,omitempty"`
	RejectedAt     *time.Time `json:"rejectedAt,omitempty"`

	CompletedBy     string     `json:"completedBy,omitempty"`
	CompletedByName string     `json:"completedByName,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`

	EmailEvents map[EmailEvent]time.Time `json:"emailEvents,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MoveQuantity é a quantidade que a conclusão movimenta: a aprovada, ou a solicitada.
func (t Transfer) MoveQuantity() int {
	if t.Approved != nil {
		return *t.Approved
	}
	return t.Quantity
}

// ReservesStock reporta se a transferência mantém reserva no ledger
// (OUT com origem cadastrada).
func (t Transfer) ReservesStock() bool {
	return t.Type == TransferOut && !t.FromProject.IsExternal()
}

// NewTransferID gera o identificador legível TRF-AAAAMMDDHHMMSS-XXXX.
func NewTransferID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("TRF-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

// TransferFilter são os filtros opcionais da listagem.
type TransferFilter struct {
	ProductID string
	ProjectID string
	Status    TransferStatus
	Limit     int
}
