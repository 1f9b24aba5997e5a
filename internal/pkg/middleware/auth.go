package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/token"
)

// actorKey é a chave do gin.Context onde o ator autenticado fica guardado.
const actorKey = "gorack.actor"

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// NewAuthMiddleware valida o Bearer token e anexa o domain.Actor ao contexto.
func NewAuthMiddleware(tokenSvc TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
			return
		}

		claims, err := tokenSvc.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithError(c, apperror.NewUnauthorizedError("Token inválido ou expirado."))
			return
		}

		c.Set(actorKey, domain.Actor{
			ID:   claims.UserID,
			Name: claims.Name,
			Role: domain.UserRole(claims.Role),
		})
		c.Next()
	}
}

// ActorFromContext extrai o ator anexado pelo NewAuthMiddleware.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// PermissionMiddleware só deixa passar atores com uma das roles informadas.
func PermissionMiddleware(requiredRoles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			abortWithError(c, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
			return
		}

		for _, role := range requiredRoles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, apperror.NewForbiddenError("Você não tem a permissão necessária."))
	}
}

func abortWithError(c *gin.Context, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	c.AbortWithStatusJSON(status, domain.ErrorResponse{Code: status, Category: category, Message: message})
}
