// Package notification decide quem é avisado de cada transição e garante, pelos
// marcadores de e-mail da transferência, no máximo um envio por tipo de evento.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gorack/internal/domain"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
)

// Notifier é o colaborador externo que entrega as notificações.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

// Outcome é o resultado de um Dispatch.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped" // marcador já existia
	OutcomeEmpty   Outcome = "empty"   // sem destinatários
	OutcomeFailed  Outcome = "failed"
)

type Dispatcher struct {
	markers  domain.EmailMarkers
	resolver *Resolver
	notifier Notifier
	metrics  *metrics.Collector
	logger   logger.Logger
	now      func() time.Time
}

func NewDispatcher(markers domain.EmailMarkers, directory domain.UserDirectory, notifier Notifier, collector *metrics.Collector, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		markers:  markers,
		resolver: NewResolver(directory),
		notifier: notifier,
		metrics:  collector,
		logger:   log,
		now:      time.Now,
	}
}

// Dispatch roda depois do commit. Falhas são registradas e devolvidas só para
// diagnóstico: nunca desfazem a etapa já confirmada. Se o envio falhar o
// marcador é removido para que uma nova tentativa possa entregar.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.EmailEvent, t domain.Transfer) (Outcome, error) {
	fields := map[string]interface{}{"transfer_id": t.TransferID, "event": string(event)}

	claimed, err := d.markers.ClaimEmailEvent(ctx, t.TransferID, event)
	if err != nil {
		d.logger.Error("Falha ao reivindicar marcador de notificação.", err)
		return d.finish(event, OutcomeFailed), err
	}
	if !claimed {
		d.logger.Debug("Notificação já enviada; ignorando.", fields)
		return d.finish(event, OutcomeSkipped), nil
	}

	recipients, err := d.resolver.Resolve(ctx, event, t)
	if err != nil {
		d.logger.Error("Falha ao resolver destinatários.", err)
		d.release(ctx, t.TransferID, event)
		return d.finish(event, OutcomeFailed), err
	}
	if recipients.Empty() {
		d.logger.Warn("Notificação sem destinatários.", fields)
		return d.finish(event, OutcomeEmpty), nil
	}

	notification := domain.NotificationEvent{
		ID:         uuid.NewString(),
		Type:       event,
		TransferID: t.TransferID,
		Transfer:   t,
		Recipients: recipients,
		OccurredAt: d.now().UTC(),
	}
	if err := d.notifier.Notify(ctx, notification); err != nil {
		d.logger.Error("Falha ao entregar notificação.", err)
		d.release(ctx, t.TransferID, event)
		return d.finish(event, OutcomeFailed), err
	}

	d.logger.Info("Notificação entregue.", fields)
	return d.finish(event, OutcomeSent), nil
}

func (d *Dispatcher) release(ctx context.Context, transferID string, event domain.EmailEvent) {
	if err := d.markers.ReleaseEmailEvent(ctx, transferID, event); err != nil {
		d.logger.Error("Falha ao liberar marcador de notificação.", err)
	}
}

func (d *Dispatcher) finish(event domain.EmailEvent, outcome Outcome) Outcome {
	d.metrics.Notification(string(event), string(outcome))
	return outcome
}

// LogNotifier só registra o evento no log. Usado quando não há broker configurado.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(_ context.Context, event domain.NotificationEvent) error {
	n.logger.Info("Notificação de transferência.", map[string]interface{}{
		"event_id":        event.ID,
		"event_type":      string(event.Type),
		"transfer_id":     event.TransferID,
		"to":              event.Recipients.To,
		"action_required": event.Recipients.ActionRequired,
		"informed":        event.Recipients.Informed,
	})
	return nil
}
