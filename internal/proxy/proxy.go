// Package proxy forwards allowed requests to the backend application
// server. One attempt per request, no retries; proxied requests may not be
// idempotent.
package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Headers never forwarded to the backend.
var skipRequestHeaders = map[string]bool{
	"Host":           true,
	"Content-Length": true,
	"Connection":     true,
	"Keep-Alive":     true,
}

// Headers dropped from the backend response; Content-Length is recomputed
// by the server.
var skipResponseHeaders = map[string]bool{
	"Content-Length": true,
	"Connection":     true,
	"Keep-Alive":     true,
}

// Forwarder performs single-attempt backend calls with a hard timeout.
type Forwarder struct {
	backendURL string
	client     *http.Client
	logger     *logrus.Logger
}

// New creates a forwarder for the given backend base URL.
func New(backendURL string, timeout time.Duration, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		backendURL: strings.TrimRight(backendURL, "/"),
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Forward proxies the request to backendURL/path and writes the backend's
// status, headers and body back unchanged. The inbound request context
// propagates, so a client disconnect cancels the backend call.
func (f *Forwarder) Forward(c *gin.Context, path string) {
	target := f.backendURL
	if path != "" {
		target += "/" + strings.TrimLeft(path, "/")
	}
	if c.Request.URL.RawQuery != "" {
		target += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		f.logger.WithError(err).Error("failed to build proxy request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Proxy error: " + err.Error()})
		return
	}

	for key, values := range c.Request.Header {
		if skipRequestHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.writeError(c, err)
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for key, values := range resp.Header {
		if skipResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			header.Add(key, value)
		}
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// Headers are already sent; nothing to do but log.
		f.logger.WithError(err).Error("failed to copy backend response")
	}
}

func (f *Forwarder) writeError(c *gin.Context, err error) {
	switch {
	case isTimeout(err):
		f.logger.WithError(err).Errorf("timeout connecting to backend %s", f.backendURL)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Backend server timeout"})
	case isConnectError(err):
		f.logger.WithError(err).Errorf("cannot connect to backend %s", f.backendURL)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Backend server is not available"})
	default:
		f.logger.WithError(err).Errorf("proxy request to backend %s failed", f.backendURL)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Proxy error: " + err.Error()})
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isConnectError reports whether the backend could not be reached at all,
// as opposed to failing mid-exchange.
func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
