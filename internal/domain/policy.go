package domain

import "math"

// EffectiveApprovedQuantity resolve a quantidade aprovada. Um valor finito e
// positivo é truncado para inteiro e limitado à quantidade solicitada; qualquer
// outro valor (ausente, zero, negativo, NaN, infinito ou menor que 1) aprova o
// total solicitado.
func EffectiveApprovedQuantity(requested int, supplied *float64) int {
	if supplied == nil {
		return requested
	}
	v := *supplied
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return requested
	}
	q := int(math.Floor(v))
	if q < 1 {
		return requested
	}
	if q > requested {
		return requested
	}
	return q
}

// ReleaseOnApproval é o quanto da reserva deixa de ser necessário após uma aprovação parcial.
func ReleaseOnApproval(requested, approved int) int {
	if approved >= requested {
		return 0
	}
	return requested - approved
}

// AvailableForTransfer é o disponível considerado na criação. Sem holdAware é o
// estoque em mãos somado nos racks do projeto; com holdAware desconta o que já
// está reservado no projeto.
func AvailableForTransfer(onHand, projectHeld int, holdAware bool) int {
	if !holdAware {
		return onHand
	}
	if avail := onHand - projectHeld; avail > 0 {
		return avail
	}
	return 0
}

// ClampRelease limita uma liberação ao que está reservado, para nunca negativar o contador.
func ClampRelease(requested, held int) int {
	if requested <= 0 || held <= 0 {
		return 0
	}
	if requested > held {
		return held
	}
	return requested
}
