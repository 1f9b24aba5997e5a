package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gorack/internal/domain"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockCache implementa cache.Client.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) Incr(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	args := m.Called(ctx, key, expiration)
	return args.Get(0).(int64), args.Error(1)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/protegido", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokenSvc := token.NewService("segredo", time.Hour)
	r := newEngine(NewAuthMiddleware(tokenSvc))

	tok, err := tokenSvc.GenerateToken("u-1", "Ana", "manager")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-1","name":"Ana","role":"manager"}`, w.Body.String())

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer invalido"} {
		req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestPermissionMiddleware(t *testing.T) {
	withActor := func(role domain.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(actorKey, domain.Actor{ID: "u-1", Role: role})
		}
	}

	allowed := newEngine(withActor(domain.RoleAdmin), PermissionMiddleware(domain.RoleAdmin, domain.RoleManager))
	w := httptest.NewRecorder()
	allowed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protegido", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	denied := newEngine(withActor(domain.RoleUser), PermissionMiddleware(domain.RoleAdmin))
	w = httptest.NewRecorder()
	denied.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protegido", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	anonymous := newEngine(PermissionMiddleware(domain.RoleAdmin))
	w = httptest.NewRecorder()
	anonymous.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protegido", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("Incr", mock.Anything, "rate-limit:192.0.2.1", time.Minute).Return(int64(2), nil).Once()
	mockCache.On("Incr", mock.Anything, "rate-limit:192.0.2.1", time.Minute).Return(int64(3), nil).Once()

	r := newEngine(RateLimiter(mockCache, 2, time.Minute, logger.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	mockCache.AssertExpectations(t)
}

func TestRateLimiter_CacheFailureLetsRequestThrough(t *testing.T) {
	mockCache := new(MockCache)
	mockCache.On("Incr", mock.Anything, mock.Anything, time.Minute).Return(int64(0), errors.New("redis fora"))

	r := newEngine(RateLimiter(mockCache, 1, time.Minute, logger.NewNop()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protegido", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
