// Package server wires the security pipeline, the proxy router and the
// monitoring endpoints into one gin application.
package server

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/middleware"
	"github.com/edgegate/edgegate/internal/monitor"
	"github.com/edgegate/edgegate/internal/proxy"
	"github.com/edgegate/edgegate/internal/security"
	"github.com/edgegate/edgegate/internal/static"
)

// Server owns the gateway's request-handling services.
type Server struct {
	cfg       *config.Config
	engine    *security.Engine
	monitor   *monitor.Monitor
	forwarder *proxy.Forwarder
	files     *static.Server
	hub       *Hub
	router    *gin.Engine
	logger    *logrus.Logger
}

// New builds the server and its route table. The hub is registered as the
// monitor's broadcaster.
func New(cfg *config.Config, engine *security.Engine, mon *monitor.Monitor, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		monitor:   mon,
		forwarder: proxy.New(cfg.Server.BackendURL, cfg.Server.ProxyTimeout, logger),
		files:     static.New(cfg.Server.StaticRoot, logger),
		hub:       NewHub(logger),
		router:    router,
		logger:    logger,
	}
	mon.SetBroadcaster(s.hub)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders(cfg.Server.HSTSEnabled))
	router.Use(middleware.CacheControl())
	if cfg.Server.GzipEnabled {
		router.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	router.Use(engine.Middleware())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/security/stats", s.handleSecurityStats)
	s.router.GET("/monitoring/stats", s.handleMonitoringStats)
	s.router.GET("/monitoring/analysis", s.handleAnalysis)
	s.router.GET("/monitoring/high-threat-ips", s.handleHighThreatIPs)
	s.router.GET("/monitoring/live", s.hub.Handle)

	// API prefixes always proxy, bypassing the static root.
	s.router.Any("/api/*path", s.handleAPIProxy)
	s.router.Any("/query/*path", s.handleQueryProxy)

	// Everything else: static file if present, backend otherwise.
	s.router.NoRoute(s.handleStaticOrProxy)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the listener and blocks.
func (s *Server) Run() error {
	s.logger.WithFields(logrus.Fields{
		"addr":    s.cfg.Server.ListenAddr,
		"backend": s.cfg.Server.BackendURL,
		"root":    s.cfg.Server.StaticRoot,
	}).Info("gateway listening")
	return s.router.Run(s.cfg.Server.ListenAddr)
}

func (s *Server) handleHealth(c *gin.Context) {
	_, rootErr := os.Stat(s.cfg.Server.StaticRoot)

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"features": gin.H{
			"static_serving":           rootErr == nil,
			"document_root":            s.cfg.Server.StaticRoot,
			"backend_target":           s.cfg.Server.BackendURL,
			"proxy_enabled":            true,
			"gzip_enabled":             s.cfg.Server.GzipEnabled,
			"ip_blocking_enabled":      s.cfg.Security.IPBlockingEnabled,
			"rate_limiting_enabled":    s.cfg.Security.RateLimitingEnabled,
			"threat_detection_enabled": s.cfg.Security.ThreatDetectionEnabled,
		},
	})
}

func (s *Server) handleSecurityStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}

func (s *Server) handleMonitoringStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Snapshot())
}

func (s *Server) handleAnalysis(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("time_window_hours", "24"))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_window_hours"})
		return
	}
	c.JSON(http.StatusOK, s.monitor.AnalyzePatterns(hours))
}

func (s *Server) handleHighThreatIPs(c *gin.Context) {
	threshold := 0
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = v
	}
	c.JSON(http.StatusOK, s.monitor.HighThreatIPs(threshold))
}

func (s *Server) handleAPIProxy(c *gin.Context) {
	s.forwarder.Forward(c, "api"+c.Param("path"))
}

func (s *Server) handleQueryProxy(c *gin.Context) {
	s.forwarder.Forward(c, "query"+c.Param("path"))
}

// handleStaticOrProxy resolves the path against the document root and
// falls back to the backend when no file matches.
func (s *Server) handleStaticOrProxy(c *gin.Context) {
	path := c.Request.URL.Path

	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		if filePath, ok := s.files.Resolve(path); ok {
			s.files.Serve(c, filePath)
			return
		}
	}

	s.logger.WithField("path", path).Debug("no static file, proxying to backend")
	s.forwarder.Forward(c, strings.TrimLeft(path, "/"))
}
