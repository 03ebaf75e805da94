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
)

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, id string) (bool, int64, time.Duration, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Get(1).(int64), args.Get(2).(time.Duration), args.Error(3)
}

func rateLimitedRouter(limiter Limiter, user string) *gin.Engine {
	router := setupTestRouter()
	router.POST("/book",
		func(c *gin.Context) {
			if user != "" {
				c.Set(UserContextKey, UserContext{UserID: user})
			}
			c.Next()
		},
		RateLimit(limiter, 5, quietLogger()),
		func(c *gin.Context) { c.Status(http.StatusCreated) },
	)
	return router
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, "user:commuter-1").Return(true, int64(2), time.Duration(0), nil)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter, "commuter-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Remaining"))
	limiter.AssertExpectations(t)
}

func TestRateLimit_Exceeded(t *testing.T) {
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, "user:commuter-1").Return(false, int64(6), 1500*time.Millisecond, nil)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter, "commuter-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimit_FallsBackToIP(t *testing.T) {
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, mock.MatchedBy(func(id string) bool {
		return len(id) > 3 && id[:3] == "ip:"
	})).Return(true, int64(1), time.Duration(0), nil)

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter, "").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	limiter.AssertExpectations(t)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := new(MockLimiter)
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, int64(0), time.Duration(0), errors.New("connection refused"))

	w := httptest.NewRecorder()
	rateLimitedRouter(limiter, "commuter-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimit_NilLimiter(t *testing.T) {
	w := httptest.NewRecorder()
	rateLimitedRouter(nil, "commuter-1").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}
