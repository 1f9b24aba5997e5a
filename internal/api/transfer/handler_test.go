package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/middleware"
	"gorack/internal/pkg/token"
	"gorack/internal/service/transferservice"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateTransfer(ctx context.Context, in transferservice.CreateTransferInput) (domain.Transfer, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Transfer), args.Error(1)
}

func (m *MockTransferService) DecideTransfer(ctx context.Context, in transferservice.DecideTransferInput) (domain.Transfer, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Transfer), args.Error(1)
}

func (m *MockTransferService) CompleteTransfer(ctx context.Context, in transferservice.CompleteTransferInput) (domain.Transfer, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Transfer), args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	args := m.Called(ctx, transferID)
	return args.Get(0).(domain.Transfer), args.Error(1)
}

func (m *MockTransferService) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.Transfer, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]domain.Transfer)
	return list, args.Error(1)
}

var tokens = token.NewService("segredo-de-teste", time.Hour)

func setup(t *testing.T) (*gin.Engine, *MockTransferService) {
	t.Helper()
	svc := new(MockTransferService)
	h := NewHandler(svc, logger.NewNop())

	r := gin.New()
	v1 := r.Group("/v1", middleware.NewAuthMiddleware(tokens))
	h.RegisterRoutes(v1, middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleManager))
	return r, svc
}

func do(t *testing.T, r *gin.Engine, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		tok, err := tokens.GenerateToken("u-1", "Ana", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTransferHandler(t *testing.T) {
	r, svc := setup(t)
	actor := domain.Actor{ID: "u-1", Name: "Ana", Role: domain.RoleUser}
	svc.On("CreateTransfer", mock.Anything, transferservice.CreateTransferInput{
		ProductID:     "x",
		FromProjectID: "p1",
		ToProjectID:   "EXTERNAL",
		Type:          domain.TransferOut,
		Quantity:      3,
		Actor:         actor,
	}).Return(domain.Transfer{TransferID: "TRF-1", Status: domain.StatusPending, ToProject: domain.External()}, nil).Once()

	w := do(t, r, http.MethodPost, "/v1/transfers", "user", CreateTransferRequest{
		ProductID: "x", FromProjectID: "p1", ToProjectID: "EXTERNAL", TransferType: domain.TransferOut, Quantity: 3,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRF-1", resp["transferId"])
	assert.Equal(t, "EXTERNAL", resp["transfer"].(map[string]interface{})["toProjectId"])
	svc.AssertExpectations(t)
}

func TestCreateTransferHandler_Errors(t *testing.T) {
	r, svc := setup(t)
	svc.On("CreateTransfer", mock.Anything, mock.Anything).
		Return(domain.Transfer{}, apperror.NewInsufficientStockError("projeto p1", 2, 5)).Once()

	w := do(t, r, http.MethodPost, "/v1/transfers", "user", CreateTransferRequest{ProductID: "x", Quantity: 5})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Category)
	assert.EqualValues(t, 3, resp.Details["shortfall"])

	// Sem token
	w = do(t, r, http.MethodPost, "/v1/transfers", "", CreateTransferRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// JSON malformado
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", bytes.NewBufferString("{"))
	tok, _ := tokens.GenerateToken("u-1", "Ana", "user")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "CreateTransfer", 1)
}

func TestDecideTransferHandler_RequiresRole(t *testing.T) {
	r, svc := setup(t)
	approved := 2.0
	svc.On("DecideTransfer", mock.Anything, mock.MatchedBy(func(in transferservice.DecideTransferInput) bool {
		return in.TransferID == "TRF-1" && in.Status == domain.StatusApproved && *in.ApprovedQuantity == approved
	})).Return(domain.Transfer{TransferID: "TRF-1", Status: domain.StatusApproved}, nil).Once()

	w := do(t, r, http.MethodPost, "/v1/transfers/TRF-1/decision", "user", DecisionRequest{Status: domain.StatusApproved})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/v1/transfers/TRF-1/decision", "manager", DecisionRequest{Status: domain.StatusApproved, ApprovedQuantity: &approved})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdateTransferHandler(t *testing.T) {
	r, svc := setup(t)
	svc.On("CompleteTransfer", mock.Anything, mock.MatchedBy(func(in transferservice.CompleteTransferInput) bool {
		return in.TransferID == "TRF-1" && in.DestinationRack == "d1"
	})).Return(domain.Transfer{TransferID: "TRF-1", Status: domain.StatusCompleted}, nil).Once()
	svc.On("DecideTransfer", mock.Anything, mock.Anything).
		Return(domain.Transfer{TransferID: "TRF-1", Status: domain.StatusRejected}, nil).Once()

	w := do(t, r, http.MethodPatch, "/v1/transfers/TRF-1", "user", UpdateTransferRequest{Action: "complete", DestinationRack: "d1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = do(t, r, http.MethodPatch, "/v1/transfers/TRF-1", "user", UpdateTransferRequest{Status: domain.StatusRejected})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPatch, "/v1/transfers/TRF-1", "admin", UpdateTransferRequest{Status: domain.StatusRejected})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPatch, "/v1/transfers/TRF-1", "admin", UpdateTransferRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestListAndGetTransferHandlers(t *testing.T) {
	r, svc := setup(t)
	svc.On("ListTransfers", mock.Anything, domain.TransferFilter{ProductID: "x", Status: domain.StatusPending, Limit: 10}).
		Return(nil, nil).Once()
	svc.On("GetTransfer", mock.Anything, "TRF-404").
		Return(domain.Transfer{}, apperror.NewNotFoundError("Transferência TRF-404 não existe.")).Once()

	w := do(t, r, http.MethodGet, "/v1/transfers?productId=x&status=pending&limit=10", "user", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, r, http.MethodGet, "/v1/transfers?limit=abc", "user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/v1/transfers/TRF-404", "user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}
