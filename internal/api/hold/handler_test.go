package hold

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockHoldService struct {
	mock.Mock
}

func (m *MockHoldService) Summary(ctx context.Context, projectID, productID string) (domain.StockSummary, error) {
	args := m.Called(ctx, projectID, productID)
	return args.Get(0).(domain.StockSummary), args.Error(1)
}

func newEngine(svc HoldService) *gin.Engine {
	r := gin.New()
	NewHandler(svc, logger.NewNop()).RegisterRoutes(r.Group("/v1"))
	return r
}

func TestGetSummaryHandler(t *testing.T) {
	svc := new(MockHoldService)
	summary := domain.NewStockSummary("p1", "x", 10, 4, []domain.RackHold{{RackID: "r1", ProjectID: "p1", ProductID: "x", Held: 3}})
	svc.On("Summary", mock.Anything, "p1", "x").Return(summary, nil)

	w := httptest.NewRecorder()
	newEngine(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/holds?projectId=p1&productId=x", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got domain.StockSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, summary, got)
	svc.AssertExpectations(t)
}

func TestGetSummaryHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"parâmetros ausentes", apperror.NewValidationError("projectId e productId são obrigatórios."), http.StatusBadRequest},
		{"projeto inexistente", apperror.NewNotFoundError("Projeto não encontrado."), http.StatusNotFound},
		{"falha de banco", apperror.NewDBError("falha", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHoldService)
			svc.On("Summary", mock.Anything, "", "").Return(domain.StockSummary{}, tt.err)

			w := httptest.NewRecorder()
			newEngine(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/holds", nil))

			assert.Equal(t, tt.status, w.Code)
			var resp domain.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}
