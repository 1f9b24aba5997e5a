package hold

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/logger"
)

// HoldService define o contrato de leitura do ledger de reservas.
type HoldService interface {
	Summary(ctx context.Context, projectID, productID string) (domain.StockSummary, error)
}

type Handler struct {
	Service HoldService
	Logger  logger.Logger
}

func NewHandler(svc HoldService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/holds", h.GetSummaryHandler)
}

// GetSummaryHandler lida com a requisição GET /v1/holds.
// @Summary Resumo de estoque e reservas
// @Description Estoque em mãos, reserva do projeto, reservas por rack e o disponível de (projeto, produto).
// @Tags holds
// @Produce json
// @Security BearerAuth
// @Param projectId query string true "Projeto"
// @Param productId query string true "Produto"
// @Success 200 {object} domain.StockSummary
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /holds [get]
func (h *Handler) GetSummaryHandler(c *gin.Context) {
	summary, err := h.Service.Summary(c.Request.Context(), c.Query("projectId"), c.Query("productId"))
	if err != nil {
		status, category, message := apperror.MapToHTTPStatus(err)
		if status >= 500 {
			h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
		}
		_ = c.Error(err)
		c.JSON(status, domain.ErrorResponse{Code: status, Category: category, Message: message})
		return
	}
	c.JSON(http.StatusOK, summary)
}
