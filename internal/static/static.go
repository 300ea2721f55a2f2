// Package static serves files from the document root with conditional
// request support: ETag validation, If-Modified-Since and single-range
// partial content.
package static

import (
	"crypto/md5"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const cacheControl = "public, max-age=3600"

// Server resolves request paths against a document root.
type Server struct {
	root   string
	logger *logrus.Logger
}

// New creates a static file server rooted at dir.
func New(dir string, logger *logrus.Logger) *Server {
	return &Server{root: dir, logger: logger}
}

// Resolve maps a request path to a file under the document root. An empty
// path defaults to index.html. Returns false when the path escapes the
// root or does not name a regular file.
func (s *Server) Resolve(path string) (string, bool) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		path = "index.html"
	}

	full := filepath.Join(s.root, filepath.Clean("/"+path))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

// Serve writes the file with conditional-request handling. filePath must
// come from Resolve.
func (s *Server) Serve(c *gin.Context, filePath string) {
	info, err := os.Stat(filePath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	size := info.Size()
	modTime := info.ModTime()
	etag := computeETag(filepath.Base(filePath), modTime, size)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	if ims := c.GetHeader("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && !modTime.Truncate(time.Second).After(t) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		if start, end, ok := parseRange(rangeHeader, size); ok {
			s.servePartial(c, filePath, etag, start, end, size)
			return
		}
		// Malformed or multi-range requests fall back to the full file.
	}

	s.serveFull(c, filePath, etag, modTime, size)
}

func (s *Server) serveFull(c *gin.Context, filePath, etag string, modTime time.Time, size int64) {
	f, err := os.Open(filePath)
	if err != nil {
		s.logger.WithError(err).Errorf("failed to open static file %s", filePath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", contentType(filePath))
	header.Set("Content-Length", strconv.FormatInt(size, 10))
	header.Set("ETag", etag)
	header.Set("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", cacheControl)

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		s.logger.WithError(err).Errorf("failed to send static file %s", filePath)
	}
}

func (s *Server) servePartial(c *gin.Context, filePath, etag string, start, end, size int64) {
	f, err := os.Open(filePath)
	if err != nil {
		s.logger.WithError(err).Errorf("failed to open static file %s", filePath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		s.logger.WithError(err).Errorf("failed to seek in static file %s", filePath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	length := end - start + 1
	header := c.Writer.Header()
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Length", strconv.FormatInt(length, 10))
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	header.Set("Accept-Ranges", "bytes")
	header.Set("ETag", etag)
	header.Set("Cache-Control", cacheControl)

	c.Status(http.StatusPartialContent)
	if _, err := io.CopyN(c.Writer, f, length); err != nil {
		s.logger.WithError(err).Errorf("failed to send range of %s", filePath)
	}
}

// computeETag builds the strong validator from filename, modification time
// and size.
func computeETag(name string, modTime time.Time, size int64) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s-%d-%d", name, modTime.Unix(), size))
	return fmt.Sprintf("%x", sum)
}

// parseRange parses a single-range bytes=start-end header. The end offset
// is clamped to size-1. Multi-range and malformed specs return ok=false.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	start = 0
	if parts[0] != "" {
		v, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return 0, 0, false
		}
		start = v
	}

	end = size - 1
	if parts[1] != "" {
		v, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, false
		}
		end = v
	}
	if end > size-1 {
		end = size - 1
	}

	if start < 0 || start > end || start >= size {
		return 0, 0, false
	}
	return start, end, true
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
