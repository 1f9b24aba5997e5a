package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorack/internal/api/hold"
	"gorack/internal/api/router"
	"gorack/internal/api/transfer"
	"gorack/internal/domain"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
	"gorack/internal/pkg/token"
	"gorack/internal/repository/memstore"
	"gorack/internal/service/holdledger"
	"gorack/internal/service/movement"
	"gorack/internal/service/notification"
	"gorack/internal/service/transferservice"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stack struct {
	engine *gin.Engine
	store  *memstore.Store
	tokens *token.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	s := memstore.New()
	s.AddProduct(domain.Product{ID: "x", Name: "Parafuso"})
	s.AddProject(domain.Project{ID: "p1"})
	s.AddProject(domain.Project{ID: "p2"})
	require.NoError(t, s.AddRack(domain.Rack{ID: "r1", ProjectID: "p1", Number: "R1",
		Products: []domain.RackProduct{{ProductID: "x", Stock: 10}}}))
	require.NoError(t, s.AddRack(domain.Rack{ID: "d1", ProjectID: "p2", Number: "D1"}))
	s.AddUser(domain.User{ID: "u-1", Email: "ana@gorack.io", Role: domain.RoleAdmin})

	log := logger.NewNop()
	collector := metrics.New()
	ledger := holdledger.NewLedger(s, collector, log, false)
	svc := transferservice.NewService(s, ledger, movement.NewExecutor(log),
		notification.NewDispatcher(s, s, notification.NewLogNotifier(log), collector, log), collector, log)
	tokens := token.NewService("segredo-de-teste", time.Hour)

	engine := router.NewRouter(transfer.NewHandler(svc, log), hold.NewHandler(ledger, log), router.Config{
		TokenService:         tokens,
		Metrics:              collector,
		Logger:               log,
		RateLimitMaxRequests: 100,
		RateLimitPeriod:      time.Minute,
	})
	return &stack{engine: engine, store: s, tokens: tokens}
}

func (s *stack) call(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	tok, err := s.tokens.GenerateToken("u-1", "Ana", "admin")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestInfrastructureRoutes(t *testing.T) {
	s := newStack(t)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/transfers", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gorack_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

func TestTransferLifecycleOverHTTP(t *testing.T) {
	s := newStack(t)

	w := s.call(t, http.MethodPost, "/v1/transfers", map[string]interface{}{
		"productId": "x", "fromProjectId": "p1", "toProjectId": "p2",
		"fromRack": "r1", "transferType": "OUT", "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created transfer.CreateTransferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.TransferID

	w = s.call(t, http.MethodGet, "/v1/holds?projectId=p1&productId=x", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.StockSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 10, summary.OnHand)
	assert.Equal(t, 4, summary.ProjectHeld)
	assert.Equal(t, 6, summary.Available)

	w = s.call(t, http.MethodPost, "/v1/transfers/"+id+"/decision", map[string]interface{}{"status": "approved", "approvedQuantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.call(t, http.MethodPatch, "/v1/transfers/"+id, map[string]interface{}{"action": "complete", "destinationRack": "d1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done domain.Transfer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, domain.StatusCompleted, done.Status)

	assert.Equal(t, 7, s.store.StockAt("r1", "x"))
	assert.Equal(t, 3, s.store.StockAt("d1", "x"))
	assert.Equal(t, 0, s.store.HeldQuantity("p1", "x"))

	w = s.call(t, http.MethodGet, "/v1/transfers?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Transfer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Len(t, list[0].EmailEvents, 3)

	w = s.call(t, http.MethodPost, "/v1/transfers/"+id+"/complete", map[string]interface{}{"destinationRack": "d1"})
	assert.Equal(t, http.StatusOK, w.Code, "conclusão repetida é idempotente")
	assert.Equal(t, 3, s.store.StockAt("d1", "x"))
}
