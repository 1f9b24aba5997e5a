package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gorack/internal/domain"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/logger"
)

// RateLimiter limita requisições por ator (ou IP, antes da autenticação) em
// janelas fixas contadas no Redis. Falhas do cache não bloqueiam a requisição.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if actor, ok := ActorFromContext(c); ok {
			subject = actor.ID
		}
		key := fmt.Sprintf("rate-limit:%s", subject)

		count, err := client.Incr(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("Rate limiter indisponível, requisição liberada.", map[string]interface{}{"error": err.Error()})
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.ErrorResponse{
				Code:     http.StatusTooManyRequests,
				Category: "RATE_LIMITED",
				Message:  "Limite de requisições excedido.",
			})
			return
		}
		c.Next()
	}
}
