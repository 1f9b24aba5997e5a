package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperror "gorack/internal/errors"
)

func TestMapToHTTPStatus(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		category string
	}{
		{"validacao", apperror.NewValidationError("quantidade inválida"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"nao encontrado", apperror.NewNotFoundError("transferência"), http.StatusNotFound, "NOT_FOUND"},
		{"estoque", apperror.NewInsufficientStockError("rack R1", 12, 20), http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"configuracao", apperror.NewConfigurationError("rack de destino ausente"), http.StatusConflict, "CONFIGURATION_ERROR"},
		{"encapsulado", fmt.Errorf("camada externa: %w", apperror.NewNotFoundError("rack")), http.StatusNotFound, "NOT_FOUND"},
		{"nao tipado", fmt.Errorf("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, category, _ := apperror.MapToHTTPStatus(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.category, category)
		})
	}
}

func TestInsufficientStockError_CarriesNumbers(t *testing.T) {
	err := apperror.NewInsufficientStockError("", 12, 20)

	assert.Contains(t, err.Error(), "Disponível: 12, Solicitado: 20")
	details := apperror.DetailsOf(err)
	assert.Equal(t, 12, details["available"])
	assert.Equal(t, 20, details["required"])
	assert.Equal(t, 8, details["shortfall"])
}

func TestNewDBError_KeepsTypedErrors(t *testing.T) {
	notFound := apperror.NewNotFoundError("produto")
	assert.Same(t, notFound, apperror.NewDBError("falha", notFound))

	wrapped := apperror.NewDBError("falha ao buscar", fmt.Errorf("connection reset"))
	assert.IsType(t, &apperror.InternalError{}, wrapped)
	assert.True(t, apperror.IsNotFound(fmt.Errorf("x: %w", notFound)))
	assert.False(t, apperror.IsValidation(wrapped))
}
