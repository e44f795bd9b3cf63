package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iruldev/modhost/internal/infra/config"
	infraredis "github.com/iruldev/modhost/internal/infra/redis"
	"github.com/iruldev/modhost/internal/interface/http/middleware"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                                "test",
		ServiceName:                        "modhost-test",
		ProblemBaseURL:                     "https://api.example.com/problems/",
		RateLimitRPS:                       1000,
		InternalBindAddress:                "127.0.0.1",
		MaxRequestSize:                     1 << 20,
		AuditRedactEmail:                   "full",
		ShutdownTimeout:                    5 * time.Second,
		FrameworkEventThreadPoolSize:       2,
		FrameworkModulesReloadPollInterval: time.Second,
		FrameworkModulesAutoStart:          true,
		FrameworkServiceCacheSize:          16,
	}
}

func signTestToken(t *testing.T, secret []byte, roles []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "user-123",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestNewRouter_HealthAlwaysMounted(t *testing.T) {
	router := NewRouter(testConfig(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRouter_ModulesNotMountedWithoutHost(t *testing.T) {
	router := NewRouter(testConfig(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewRouter_AdminRoutes_NoJWT_Unprotected(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTEnabled = false
	router := NewRouter(cfg, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRouter_AdminRoutes_JWTEnabled_NoToken_Returns401(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTEnabled = true
	cfg.JWTSecret = "test-secret-key-at-least-32-bytes!!"
	router := NewRouter(cfg, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewRouter_AdminRoutes_JWTEnabled_WrongRole_Returns403(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTEnabled = true
	cfg.JWTSecret = "test-secret-key-at-least-32-bytes!!"
	router := NewRouter(cfg, nil, nil)

	token := signTestToken(t, []byte(cfg.JWTSecret), []string{"user"})
	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestNewRouter_AdminRoutes_JWTEnabled_AdminRole_Returns200(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTEnabled = true
	cfg.JWTSecret = "test-secret-key-at-least-32-bytes!!"
	router := NewRouter(cfg, nil, nil)

	token := signTestToken(t, []byte(cfg.JWTSecret), []string{"admin"})
	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	router := NewRouter(testConfig(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestNewRateLimiter_NoRedisAddr_ReturnsInMemoryLimiter(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRedisAddr = ""

	limiter := newRateLimiter(cfg, slog.Default())
	_, ok := limiter.(*middleware.InMemoryRateLimiter)
	assert.True(t, ok)
}

func TestNewRateLimiter_UnreachableRedis_FallsBackToInMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRedisAddr = "127.0.0.1:1" // nothing listening

	limiter := newRateLimiter(cfg, slog.Default())
	_, ok := limiter.(*middleware.InMemoryRateLimiter)
	assert.True(t, ok)
}

func TestNewRateLimiter_ReachableRedis_ReturnsRedisBackedLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.RateLimitRedisAddr = mr.Addr()

	limiter := newRateLimiter(cfg, slog.Default())
	_, ok := limiter.(*infraredis.RedisRateLimiter)
	assert.True(t, ok)
}

func TestNewRouter_RateLimitKeyExtractor_TrustProxyDisabled_IgnoresForwardedHeader(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRPS = 1
	cfg.TrustProxy = false
	router := NewRouter(cfg, nil, nil)

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req1.RemoteAddr = "192.0.2.1:5555"
	req1.Header.Set("X-Forwarded-For", "10.0.0.1")
	rr1 := httptest.NewRecorder()
	router.ServeHTTP(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req2.RemoteAddr = "192.0.2.1:6666"
	req2.Header.Set("X-Forwarded-For", "10.0.0.2")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, req2)

	assert.Equal(t, http.StatusTooManyRequests, rr2.Code, "same RemoteAddr must share a rate-limit bucket regardless of spoofable X-Forwarded-For")
}

func TestNewRouter_RateLimitKeyExtractor_TrustProxyEnabled_HonorsForwardedHeader(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRPS = 1
	cfg.TrustProxy = true
	router := NewRouter(cfg, nil, nil)

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req1.RemoteAddr = "192.0.2.1:5555"
	req1.Header.Set("X-Forwarded-For", "10.0.0.1")
	rr1 := httptest.NewRecorder()
	router.ServeHTTP(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req2.RemoteAddr = "192.0.2.1:6666"
	req2.Header.Set("X-Forwarded-For", "10.0.0.2")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, req2)

	assert.Equal(t, http.StatusOK, rr2.Code, "distinct forwarded client IPs must get distinct rate-limit buckets when the proxy is trusted")
}

func TestNewRouter_MetricsMounted(t *testing.T) {
	router := NewRouter(testConfig(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
