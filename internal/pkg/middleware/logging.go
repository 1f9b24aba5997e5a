package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gorack/internal/pkg/logger"
)

// RequestIDHeader é propagado na resposta para correlacionar logs.
const RequestIDHeader = "X-Request-ID"

// RequestLogger registra método, rota, status e latência de cada requisição,
// escolhendo o nível pelo status.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.Errors()
		}

		switch {
		case status >= 500:
			log.Warn("Requisição HTTP com erro de servidor", fields)
		case status >= 400:
			log.Info("Requisição HTTP rejeitada", fields)
		default:
			log.Debug("Requisição HTTP", fields)
		}
	}
}
