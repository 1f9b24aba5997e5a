package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"gorack/internal/domain"
	"gorack/internal/pkg/logger"
)

// MessageWriter é o subconjunto do *kafka.Writer usado aqui.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configura o publicador de notificações.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	// Disjuntor: abre após FailureThreshold falhas seguidas e tenta de novo após OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// KafkaNotifier publica os eventos de transferência em um tópico Kafka. As
// escritas passam por um circuit breaker para que um broker fora do ar não
// segure as requisições até o timeout.
type KafkaNotifier struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker
	topic   string
	timeout time.Duration
	logger  logger.Logger
}

// NewKafkaNotifier cria o writer síncrono (RequireOne) para o tópico configurado.
func NewKafkaNotifier(cfg Config, log logger.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return NewKafkaNotifierWithWriter(writer, cfg, log)
}

// NewKafkaNotifierWithWriter permite injetar o writer (testes).
func NewKafkaNotifierWithWriter(writer MessageWriter, cfg Config, log logger.Logger) *KafkaNotifier {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "kafka-notifier",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker mudou de estado.", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}

	return &KafkaNotifier{
		writer:  writer,
		breaker: gobreaker.NewCircuitBreaker(settings),
		topic:   cfg.Topic,
		timeout: cfg.WriteTimeout,
		logger:  log,
	}
}

// Notify publica o evento. A chave da mensagem é o transferId, para manter a
// ordem dos eventos de uma mesma transferência na partição.
func (n *KafkaNotifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("falha ao serializar evento: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TransferID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.OccurredAt,
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		return nil, n.writer.WriteMessages(writeCtx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("broker indisponível (circuit breaker aberto): %w", err)
	}
	if err != nil {
		return fmt.Errorf("falha ao publicar evento no tópico %s: %w", n.topic, err)
	}

	n.logger.Debug("Evento publicado no Kafka.", map[string]interface{}{
		"topic":       n.topic,
		"event_type":  event.Type,
		"transfer_id": event.TransferID,
	})
	return nil
}

// State expõe o estado do disjuntor (health check).
func (n *KafkaNotifier) State() string {
	return n.breaker.State().String()
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
