package domain

import "time"

// ProjectHold é a reserva agregada de um produto em um projeto.
type ProjectHold struct {
	ProjectID string    `json:"projectId"`
	ProductID string    `json:"productId"`
	Held      int       `json:"held"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RackHold é a parte da reserva atribuída a um rack específico.
type RackHold struct {
	RackID    string    `json:"rackId"`
	ProjectID string    `json:"projectId"`
	ProductID string    `json:"productId"`
	Held      int       `json:"held"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockSummary é a visão consolidada de estoque e reservas de (projeto, produto).
// Unassigned é a parte da reserva do projeto que não está atribuída a nenhum rack;
// é esperada (transferências sem fromRack) e não indica inconsistência.
type StockSummary struct {
	ProjectID   string     `json:"projectId"`
	ProductID   string     `json:"productId"`
	OnHand      int        `json:"onHand"`
	ProjectHeld int        `json:"projectHeld"`
	RackHeld    int        `json:"rackHeld"`
	Unassigned  int        `json:"unassignedHold"`
	Available   int        `json:"available"`
	RackHolds   []RackHold `json:"rackHolds"`
}

// NewStockSummary monta o resumo a partir das leituras do ledger.
func NewStockSummary(projectID, productID string, onHand, projectHeld int, rackHolds []RackHold) StockSummary {
	s := StockSummary{
		ProjectID:   projectID,
		ProductID:   productID,
		OnHand:      onHand,
		ProjectHeld: projectHeld,
		RackHolds:   rackHolds,
	}
	for _, h := range rackHolds {
		s.RackHeld += h.Held
	}
	if gap := projectHeld - s.RackHeld; gap > 0 {
		s.Unassigned = gap
	}
	s.Available = AvailableForTransfer(onHand, projectHeld, true)
	return s
}
