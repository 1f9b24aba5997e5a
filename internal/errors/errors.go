package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros do GoRack.
// O Handler usa a Categoria e o HTTPStatus para montar a resposta.
type AppError interface {
	Error() string
	Category() string
	HTTPStatus() int
	Unwrap() error
}

// Detailer é implementado por erros que carregam dados extras para o corpo da resposta.
type Detailer interface {
	Details() map[string]interface{}
}

// --- Erros de Domínio ---

// ValidationError representa falhas de validação de entrada ou de regra de estado
// (e.g., concluir uma transferência que ainda não foi aprovada).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ValidationError) Unwrap() error    { return nil }

func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de transferência, produto, projeto ou rack.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *NotFoundError) Unwrap() error    { return nil }

func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// InsufficientStockError carrega o disponível e o solicitado para que o cliente
// consiga exibir a diferença.
type InsufficientStockError struct {
	Available int
	Required  int
	Scope     string // projeto ou rack avaliado
}

func (e *InsufficientStockError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("Estoque insuficiente em %s. Disponível: %d, Solicitado: %d", e.Scope, e.Available, e.Required)
	}
	return fmt.Sprintf("Estoque insuficiente. Disponível: %d, Solicitado: %d", e.Available, e.Required)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *InsufficientStockError) Unwrap() error    { return nil }
func (e *InsufficientStockError) Details() map[string]interface{} {
	return map[string]interface{}{
		"available": e.Available,
		"required":  e.Required,
		"shortfall": e.Required - e.Available,
	}
}

func NewInsufficientStockError(scope string, available, required int) AppError {
	return &InsufficientStockError{Scope: scope, Available: available, Required: required}
}

// ConfigurationError indica um registro que deveria ter sido configurado antes
// (e.g., transferência IN sem rack de destino).
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string    { return fmt.Sprintf("Erro de Configuração: %s", e.Msg) }
func (e *ConfigurationError) Category() string { return "CONFIGURATION_ERROR" }
func (e *ConfigurationError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConfigurationError) Unwrap() error    { return nil }

func NewConfigurationError(msg string) AppError {
	return &ConfigurationError{Msg: msg}
}

// ConflictError representa uma corrida perdida (linha alterada por outra transação).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConflictError) Unwrap() error    { return nil }

func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError é retornado pelos middlewares de autenticação.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError: autenticado, mas sem a role necessária.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden }
func (e *ForbiddenError) Unwrap() error    { return nil }

func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// --- Erros de Infraestrutura ---

// InternalError encapsula falhas inesperadas (driver SQL, broker, etc.).
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para InternalError vindo do banco.
// Erros que já são AppError (e.g., NotFound vindo de um repositório aninhado) passam intactos.
func NewDBError(msg string, err error) AppError {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helpers ---

// IsValidation reporta se err (ou algo que ele encapsula) é um ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsNotFound reporta se err é um NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

// MapToHTTPStatus traduz um erro para código HTTP, categoria e mensagem.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratamos como interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}

// DetailsOf extrai os detalhes opcionais de um erro para o corpo da resposta.
func DetailsOf(err error) map[string]interface{} {
	var d Detailer
	if stderrors.As(err, &d) {
		return d.Details()
	}
	return nil
}
