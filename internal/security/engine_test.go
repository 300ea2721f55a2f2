package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/monitor"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func defaultSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		IPBlockingEnabled:          true,
		BlockDuration:              time.Hour,
		RateLimitingEnabled:        true,
		MaxRequestsPerMinute:       100,
		MaxRequestsPerHour:         1000,
		ThreatDetectionEnabled:     true,
		SuspiciousRequestThreshold: 5,
		ThreatScoreThreshold:       10,
	}
}

func newTestEngine(t *testing.T, cfg config.SecurityConfig) (*Engine, *monitor.Monitor) {
	t.Helper()
	mon, err := monitor.New(config.MonitorConfig{
		LogDir:      t.TempDir(),
		HistorySize: 100,
	}, cfg.ThreatScoreThreshold, quietLogger(), nil)
	require.NoError(t, err)
	return NewEngine(cfg, mon, quietLogger()), mon
}

func getRequest(target, clientIP string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if clientIP != "" {
		r.Header.Set("X-Real-IP", clientIP)
	}
	return r
}

func TestClientIPHeaderOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:51234"

	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.Header.Set("Forwarded-For", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))

	// X-Real-IP outranks everything else.
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))
}

func TestClientIPNoPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", ClientIP(r))
}

func TestAnalyzeAllowsCleanTraffic(t *testing.T) {
	engine, _ := newTestEngine(t, defaultSecurityConfig())

	for i := 0; i < 20; i++ {
		decision := engine.Analyze(getRequest("/index.html", "10.0.0.1"))
		assert.True(t, decision.Allow)
	}
}

func TestAnalyzeRateLimit(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.MaxRequestsPerMinute = 3
	engine, mon := newTestEngine(t, cfg)

	for i := 0; i < 3; i++ {
		assert.True(t, engine.Analyze(getRequest("/", "10.0.0.1")).Allow)
	}

	decision := engine.Analyze(getRequest("/", "10.0.0.1"))
	assert.False(t, decision.Allow)
	assert.Equal(t, "Rate limit exceeded", decision.Reason)

	// The offender is now on the block list; later requests short-circuit
	// there and no further rate-limit hits are counted.
	decision = engine.Analyze(getRequest("/", "10.0.0.1"))
	assert.False(t, decision.Allow)
	assert.Equal(t, "IP is blocked", decision.Reason)

	snap := mon.Snapshot()
	assert.Equal(t, 1, snap.AttackStatistics.RateLimitHits)
	assert.Equal(t, 1, snap.AttackStatistics.IPBlocks)

	// Other clients are unaffected.
	assert.True(t, engine.Analyze(getRequest("/", "10.0.0.2")).Allow)
}

func TestAnalyzeSuspiciousThreshold(t *testing.T) {
	engine, mon := newTestEngine(t, defaultSecurityConfig())

	// The first four probes are flagged but still allowed.
	for i := 0; i < 4; i++ {
		decision := engine.Analyze(getRequest("/.env", "10.0.0.1"))
		assert.True(t, decision.Allow, i)
	}

	decision := engine.Analyze(getRequest("/.env", "10.0.0.1"))
	assert.False(t, decision.Allow)
	assert.Equal(t, "Multiple suspicious requests: Suspicious path pattern: .env", decision.Reason)

	snap := mon.Snapshot()
	assert.Equal(t, 5, snap.AttackStatistics.SuspiciousRequests)
	assert.Equal(t, 1, snap.AttackStatistics.TotalAttacks)
	assert.Equal(t, 1, snap.AttackStatistics.AttackTypes["scanning"])
	assert.Equal(t, 1, snap.AttackStatistics.IPBlocks)

	decision = engine.Analyze(getRequest("/index.html", "10.0.0.1"))
	assert.Equal(t, "IP is blocked", decision.Reason)
}

func TestAnalyzeBlockingDisabled(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.IPBlockingEnabled = false
	engine, mon := newTestEngine(t, cfg)

	for i := 0; i < 5; i++ {
		engine.Analyze(getRequest("/.env", "10.0.0.1"))
	}

	// The threshold denial stands but nothing is added to the block list,
	// so clean traffic from the same IP still passes.
	assert.True(t, engine.Analyze(getRequest("/index.html", "10.0.0.1")).Allow)
	assert.Equal(t, 0, mon.Snapshot().AttackStatistics.IPBlocks)
}

func TestAnalyzeDetectionDisabled(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.ThreatDetectionEnabled = false
	engine, mon := newTestEngine(t, cfg)

	for i := 0; i < 10; i++ {
		assert.True(t, engine.Analyze(getRequest("/.env", "10.0.0.1")).Allow)
	}
	assert.Equal(t, 0, mon.Snapshot().AttackStatistics.SuspiciousRequests)
}

func TestMiddlewareDeniesWith403(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := defaultSecurityConfig()
	cfg.MaxRequestsPerMinute = 1
	engine, _ := newTestEngine(t, cfg)

	router := gin.New()
	router.Use(engine.Middleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, getRequest("/", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, getRequest("/", "10.0.0.1"))
	assert.Equal(t, http.StatusForbidden, second.Code)
	assert.JSONEq(t, `{"error": "Access denied"}`, second.Body.String())
}

func TestStats(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.MaxRequestsPerMinute = 2
	engine, _ := newTestEngine(t, cfg)

	engine.Analyze(getRequest("/", "10.0.0.1"))
	engine.Analyze(getRequest("/", "10.0.0.2"))
	engine.Analyze(getRequest("/", "10.0.0.2"))
	engine.Analyze(getRequest("/", "10.0.0.2")) // denied and blocked

	stats := engine.Stats()
	assert.Equal(t, 1, stats.BlockedIPsCount)
	assert.Contains(t, stats.ActiveBlocks, "10.0.0.2")
	assert.Equal(t, 3, stats.TotalRequestsTracked)
	assert.Equal(t, 2, stats.UniqueIPsTracked)
	assert.Equal(t, cfg, stats.Config)
}
