// Package security implements the per-request decision pipeline: block
// list, rate limiting and pattern-based threat detection.
package security

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/edgegate/edgegate/internal/blocklist"
	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/models"
	"github.com/edgegate/edgegate/internal/monitor"
	"github.com/edgegate/edgegate/internal/patterns"
	"github.com/edgegate/edgegate/internal/ratelimit"
)

// ipHeaders are consulted in order when resolving the client identity
// behind trusted proxies.
var ipHeaders = []string{
	"x-real-ip",
	"x-forwarded-for",
	"x-forwarded",
	"forwarded-for",
	"fwd",
}

// Decision is the terminal outcome of analyzing one request.
type Decision struct {
	Allow  bool
	Reason string
}

// Engine orchestrates the security components for each request.
type Engine struct {
	cfg     config.SecurityConfig
	catalog *patterns.Catalog
	limiter *ratelimit.Limiter
	blocks  *blocklist.List
	monitor *monitor.Monitor
	logger  *logrus.Logger
}

// NewEngine wires the pipeline together.
func NewEngine(cfg config.SecurityConfig, mon *monitor.Monitor, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		catalog: patterns.NewCatalog(),
		limiter: ratelimit.New(cfg.MaxRequestsPerMinute, cfg.MaxRequestsPerHour),
		blocks:  blocklist.New(cfg.BlockDuration),
		monitor: mon,
		logger:  logger,
	}
}

// ClientIP resolves the client identity from proxy headers with fallback
// to the transport peer address. Comma-separated header values yield the
// first entry.
func ClientIP(r *http.Request) string {
	for _, header := range ipHeaders {
		ip := r.Header.Get(header)
		if ip == "" {
			continue
		}
		if i := strings.Index(ip, ","); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Analyze runs the decision pipeline for one request.
func (e *Engine) Analyze(r *http.Request) Decision {
	now := time.Now()
	ip := ClientIP(r)

	if e.cfg.IPBlockingEnabled && e.blocks.IsBlocked(ip, now) {
		return Decision{Reason: "IP is blocked"}
	}

	if e.cfg.RateLimitingEnabled && !e.limiter.CheckAndRecord(ip, now) {
		e.monitor.RecordRateLimitHit()
		e.block(ip, "Rate limit exceeded", now)
		return Decision{Reason: "Rate limit exceeded"}
	}

	if e.cfg.ThreatDetectionEnabled {
		match := e.catalog.Classify(r.URL.Path, r.URL.RawQuery)
		if match.Matched {
			info := requestInfo(r)
			e.monitor.RecordSuspicious(ip, match.Reason, info)

			if e.limiter.CountRecent(ip, now) >= e.cfg.SuspiciousRequestThreshold {
				reason := "Multiple suspicious requests: " + match.Reason
				e.block(ip, reason, now)
				e.monitor.RecordAttack(models.AttackEvent{
					Timestamp:  now,
					ClientIP:   ip,
					AttackType: models.AttackScanning,
					Method:     info.Method,
					URL:        info.URL,
					UserAgent:  info.UserAgent,
					Details:    match.Reason,
				})
				return Decision{Reason: reason}
			}
		}
	}

	return Decision{Allow: true}
}

// block registers the IP in the block list. A no-op when IP blocking is
// disabled; the triggering denial still stands.
func (e *Engine) block(ip, reason string, now time.Time) {
	if !e.cfg.IPBlockingEnabled {
		return
	}
	e.blocks.Block(ip, now)
	e.monitor.RecordIPBlock()
	e.monitor.RecordBlocked(ip, reason, nil)
	e.logger.WithFields(logrus.Fields{
		"client_ip": ip,
		"reason":    reason,
	}).Warn("blocked IP")
}

// Middleware enforces the decision on every request. Denied requests get a
// generic 403 so the triggering rule is never revealed.
func (e *Engine) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := e.Analyze(c.Request)
		if decision.Allow {
			c.Next()
			return
		}

		ip := ClientIP(c.Request)
		info := requestInfo(c.Request)
		e.monitor.RecordBlocked(ip, decision.Reason, &info)
		e.logger.WithFields(logrus.Fields{
			"client_ip": ip,
			"reason":    decision.Reason,
			"url":       info.URL,
		}).Warn("request denied")

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// Stats is the snapshot served by /security/stats.
type Stats struct {
	BlockedIPsCount      int                   `json:"blocked_ips_count"`
	ActiveBlocks         map[string]int        `json:"active_blocks"`
	TotalRequestsTracked int                   `json:"total_requests_tracked"`
	UniqueIPsTracked     int                   `json:"unique_ips_tracked"`
	Config               config.SecurityConfig `json:"config"`
}

// Stats returns the current security state.
func (e *Engine) Stats() Stats {
	active := e.blocks.ActiveBlocks(time.Now())
	return Stats{
		BlockedIPsCount:      len(active),
		ActiveBlocks:         active,
		TotalRequestsTracked: e.limiter.TotalTracked(),
		UniqueIPsTracked:     e.limiter.UniqueIPs(),
		Config:               e.cfg,
	}
}

func requestInfo(r *http.Request) models.RequestInfo {
	return models.RequestInfo{
		Method:    r.Method,
		URL:       r.URL.String(),
		UserAgent: r.UserAgent(),
	}
}
