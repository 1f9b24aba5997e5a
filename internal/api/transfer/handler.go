package transfer

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/middleware"
	"gorack/internal/service/transferservice"
)

// TransferService define o contrato que o Handler espera da camada de Serviço.
type TransferService interface {
	CreateTransfer(ctx context.Context, in transferservice.CreateTransferInput) (domain.Transfer, error)
	DecideTransfer(ctx context.Context, in transferservice.DecideTransferInput) (domain.Transfer, error)
	CompleteTransfer(ctx context.Context, in transferservice.CompleteTransferInput) (domain.Transfer, error)
	GetTransfer(ctx context.Context, transferID string) (domain.Transfer, error)
	ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.Transfer, error)
}

// CreateTransferRequest é o payload de POST /v1/transfers.
type CreateTransferRequest struct {
	ProductID     string              `json:"productId" example:"8f0c2d1e-0000-4000-8000-000000000001"`
	FromProjectID string              `json:"fromProjectId" example:"EXTERNAL"`
	ToProjectID   string              `json:"toProjectId"`
	FromRack      string              `json:"fromRack,omitempty"`
	ToRack        string              `json:"toRack,omitempty"`
	TransferType  domain.TransferType `json:"transferType" example:"OUT"`
	Quantity      int                 `json:"quantity" example:"10"`
	Reason        string              `json:"reason,omitempty"`
}

// CreateTransferResponse devolve o identificador legível junto com o registro.
type CreateTransferResponse struct {
	TransferID string          `json:"transferId"`
	Transfer   domain.Transfer `json:"transfer"`
}

// DecisionRequest é o payload de POST /v1/transfers/{transferId}/decision.
type DecisionRequest struct {
	Status           domain.TransferStatus `json:"status" example:"approved"`
	ApprovedQuantity *float64              `json:"approvedQuantity,omitempty"`
}

// CompleteRequest é o payload de POST /v1/transfers/{transferId}/complete.
type CompleteRequest struct {
	DestinationRack string `json:"destinationRack,omitempty"`
	SourceRack      string `json:"sourceRack,omitempty"`
}

// UpdateTransferRequest é o payload do PATCH unificado: action=complete conclui,
// status=approved|rejected decide.
type UpdateTransferRequest struct {
	Action           string                `json:"action,omitempty" example:"complete"`
	Status           domain.TransferStatus `json:"status,omitempty"`
	ApprovedQuantity *float64              `json:"approvedQuantity,omitempty"`
	DestinationRack  string                `json:"destinationRack,omitempty"`
	SourceRack       string                `json:"sourceRack,omitempty"`
}

// Handler agrupa todos os métodos de Handler de transferências.
type Handler struct {
	Service TransferService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc TransferService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// RegisterRoutes liga as rotas ao grupo já autenticado. deciders são os
// middlewares exigidos para aprovar ou rejeitar.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, deciders ...gin.HandlerFunc) {
	rg.POST("/transfers", h.CreateTransferHandler)
	rg.GET("/transfers", h.ListTransfersHandler)
	rg.GET("/transfers/:transferId", h.GetTransferHandler)
	rg.PATCH("/transfers/:transferId", h.UpdateTransferHandler)
	rg.POST("/transfers/:transferId/decision", append(deciders, h.DecideTransferHandler)...)
	rg.POST("/transfers/:transferId/complete", h.CompleteTransferHandler)
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(c *gin.Context, data interface{}, err error, successStatus int) {
	if err == nil {
		c.JSON(successStatus, data)
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": c.Request.URL.Path})
	}

	_ = c.Error(err)
	c.JSON(status, domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
		Details:  apperror.DetailsOf(err),
	})
}

func (h *Handler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		h.handleServiceResponse(c, nil, apperror.NewUnauthorizedError("Ator não identificado."), http.StatusOK)
	}
	return actor, ok
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.handleServiceResponse(c, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return false
	}
	return true
}

// CreateTransferHandler lida com a requisição POST /v1/transfers.
// @Summary Solicita uma transferência
// @Description Cria a transferência pendente. OUT com origem cadastrada reserva a quantidade no ledger.
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transfer body CreateTransferRequest true "Dados da transferência"
// @Success 201 {object} CreateTransferResponse
// @Failure 400 {object} domain.ErrorResponse "Validação ou estoque insuficiente"
// @Failure 404 {object} domain.ErrorResponse "Produto, projeto ou rack inexistente"
// @Router /transfers [post]
func (h *Handler) CreateTransferHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateTransferRequest
	if !h.bind(c, &req) {
		return
	}

	t, err := h.Service.CreateTransfer(c.Request.Context(), transferservice.CreateTransferInput{
		ProductID:     req.ProductID,
		FromProjectID: req.FromProjectID,
		ToProjectID:   req.ToProjectID,
		FromRack:      req.FromRack,
		ToRack:        req.ToRack,
		Type:          req.TransferType,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Actor:         actor,
	})
	if err != nil {
		h.handleServiceResponse(c, nil, err, http.StatusCreated)
		return
	}
	h.handleServiceResponse(c, CreateTransferResponse{TransferID: t.TransferID, Transfer: t}, nil, http.StatusCreated)
}

// ListTransfersHandler lida com a requisição GET /v1/transfers.
// @Summary Lista transferências
// @Tags transfers
// @Produce json
// @Security BearerAuth
// @Param productId query string false "Filtra por produto"
// @Param projectId query string false "Filtra por projeto (origem ou destino)"
// @Param status query string false "pending, approved, rejected ou completed"
// @Param limit query int false "Máximo de registros (padrão 100)"
// @Success 200 {array} domain.Transfer
// @Failure 400 {object} domain.ErrorResponse
// @Router /transfers [get]
func (h *Handler) ListTransfersHandler(c *gin.Context) {
	filter := domain.TransferFilter{
		ProductID: c.Query("productId"),
		ProjectID: c.Query("projectId"),
		Status:    domain.TransferStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.handleServiceResponse(c, nil, apperror.NewValidationError("limit deve ser um inteiro positivo."), http.StatusOK)
			return
		}
		filter.Limit = limit
	}

	list, err := h.Service.ListTransfers(c.Request.Context(), filter)
	if list == nil {
		list = []domain.Transfer{}
	}
	h.handleServiceResponse(c, list, err, http.StatusOK)
}

// GetTransferHandler lida com a requisição GET /v1/transfers/{transferId}.
// @Summary Busca uma transferência
// @Tags transfers
// @Produce json
// @Security BearerAuth
// @Param transferId path string true "Identificador TRF-..."
// @Success 200 {object} domain.Transfer
// @Failure 404 {object} domain.ErrorResponse
// @Router /transfers/{transferId} [get]
func (h *Handler) GetTransferHandler(c *gin.Context) {
	t, err := h.Service.GetTransfer(c.Request.Context(), c.Param("transferId"))
	h.handleServiceResponse(c, t, err, http.StatusOK)
}

// DecideTransferHandler lida com a requisição POST /v1/transfers/{transferId}/decision.
// @Summary Aprova ou rejeita uma transferência pendente
// @Description approvedQuantity menor que o solicitado libera a diferença da reserva.
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transferId path string true "Identificador TRF-..."
// @Param decision body DecisionRequest true "Decisão"
// @Success 200 {object} domain.Transfer
// @Failure 400 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Router /transfers/{transferId}/decision [post]
func (h *Handler) DecideTransferHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Service.DecideTransfer(c.Request.Context(), transferservice.DecideTransferInput{
		TransferID:       c.Param("transferId"),
		Status:           req.Status,
		ApprovedQuantity: req.ApprovedQuantity,
		Actor:            actor,
	})
	h.handleServiceResponse(c, t, err, http.StatusOK)
}

// CompleteTransferHandler lida com a requisição POST /v1/transfers/{transferId}/complete.
// @Summary Conclui uma transferência aprovada
// @Description Movimenta o estoque dos racks. OUT exige destinationRack quando o destino é cadastrado; IN exige sourceRack.
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transferId path string true "Identificador TRF-..."
// @Param completion body CompleteRequest true "Racks da conclusão"
// @Success 200 {object} domain.Transfer
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transferência sem rack configurado ou conflito"
// @Router /transfers/{transferId}/complete [post]
func (h *Handler) CompleteTransferHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.Service.CompleteTransfer(c.Request.Context(), transferservice.CompleteTransferInput{
		TransferID:      c.Param("transferId"),
		DestinationRack: req.DestinationRack,
		SourceRack:      req.SourceRack,
		Actor:           actor,
	})
	h.handleServiceResponse(c, t, err, http.StatusOK)
}

// UpdateTransferHandler lida com a requisição PATCH /v1/transfers/{transferId}.
// @Summary Atualização unificada (decisão ou conclusão)
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transferId path string true "Identificador TRF-..."
// @Param update body UpdateTransferRequest true "action=complete ou status=approved|rejected"
// @Success 200 {object} domain.Transfer
// @Failure 400 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Router /transfers/{transferId} [patch]
func (h *Handler) UpdateTransferHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req UpdateTransferRequest
	if !h.bind(c, &req) {
		return
	}

	var (
		t   domain.Transfer
		err error
	)
	switch {
	case req.Action == "complete":
		t, err = h.Service.CompleteTransfer(c.Request.Context(), transferservice.CompleteTransferInput{
			TransferID:      c.Param("transferId"),
			DestinationRack: req.DestinationRack,
			SourceRack:      req.SourceRack,
			Actor:           actor,
		})
	case req.Action == "" && req.Status != "":
		if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
			err = apperror.NewForbiddenError("Somente admin ou manager decidem transferências.")
			break
		}
		t, err = h.Service.DecideTransfer(c.Request.Context(), transferservice.DecideTransferInput{
			TransferID:       c.Param("transferId"),
			Status:           req.Status,
			ApprovedQuantity: req.ApprovedQuantity,
			Actor:            actor,
		})
	default:
		err = apperror.NewValidationError("Informe action=complete ou status=approved|rejected.")
	}
	h.handleServiceResponse(c, t, err, http.StatusOK)
}
