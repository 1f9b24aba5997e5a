package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "gorack/internal/api/docs" // registra o documento OpenAPI
	"gorack/internal/api/hold"
	"gorack/internal/api/transfer"
	"gorack/internal/domain"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
	"gorack/internal/pkg/middleware"
)

// Config reúne a infraestrutura usada pelos middlewares.
type Config struct {
	TokenService middleware.TokenService
	Cache        cache.Client
	Metrics      *metrics.Collector
	Logger       logger.Logger

	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(transfers *transfer.Handler, holds *hold.Handler, cfg Config) *gin.Engine {
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger), httpMetrics(cfg.Metrics))

	// Health check e infraestrutura
	r.GET("/ping", PingHandler)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))

	// Rotas v1, todas autenticadas
	v1 := r.Group("/v1",
		middleware.NewAuthMiddleware(cfg.TokenService),
		middleware.RateLimiter(cfg.Cache, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, cfg.Logger),
	)
	transfers.RegisterRoutes(v1, middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleManager))
	holds.RegisterRoutes(v1)

	return r
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// httpMetrics conta as requisições pela rota registrada, não pelo path bruto.
func httpMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.HTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
