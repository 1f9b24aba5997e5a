package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gorack"

// Collector agrupa as métricas do fluxo de transferências.
// Um *Collector nil é válido e não registra nada.
type Collector struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	operationTiming *prometheus.HistogramVec
	unitsMoved      *prometheus.CounterVec
	holdChanges     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New cria um Collector com registry próprio, incluindo as métricas padrão do Go.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_operations_total",
			Help:      "Etapas do fluxo de transferência por operação e resultado.",
		}, []string{"operation", "type", "result"}),
		operationTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_operation_duration_seconds",
			Help:      "Duração das etapas do fluxo, incluindo a transação.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		unitsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_moved_total",
			Help:      "Unidades movimentadas entre racks na conclusão das transferências.",
		}, []string{"type"}),
		holdChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_units_total",
			Help:      "Unidades reservadas e liberadas no ledger.",
		}, []string{"direction", "level"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notificações por evento e resultado (sent, skipped, failed).",
		}, []string{"event", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requisições HTTP por rota e status.",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(c.operations, c.operationTiming, c.unitsMoved, c.holdChanges, c.notifications, c.httpRequests)
	return c
}

// Handler expõe o registry no formato do Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry é exposto para testes.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveOperation(operation, transferType string, started time.Time, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(operation, transferType, result).Inc()
	c.operationTiming.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (c *Collector) UnitsMoved(transferType string, qty int) {
	if c == nil || qty <= 0 {
		return
	}
	c.unitsMoved.WithLabelValues(transferType).Add(float64(qty))
}

// HoldChanged registra reservas (direction=reserve) e liberações (direction=release).
func (c *Collector) HoldChanged(direction, level string, qty int) {
	if c == nil || qty <= 0 {
		return
	}
	c.holdChanges.WithLabelValues(direction, level).Add(float64(qty))
}

func (c *Collector) Notification(event, result string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(event, result).Inc()
}

func (c *Collector) HTTPRequest(method, route, status string) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, status).Inc()
}
