package static

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>home</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.bin"), []byte("0123456789"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "page.html"), []byte("<html>sub</html>"), 0o644))
	return New(root, quietLogger()), root
}

func serve(s *Server, filePath string, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	s.Serve(c, filePath)
	c.Writer.WriteHeaderNow()
	return rec
}

func TestResolve(t *testing.T) {
	s, root := newTestServer(t)

	path, ok := s.Resolve("/index.html")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "index.html"), path)

	// Empty path defaults to index.html.
	path, ok = s.Resolve("/")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "index.html"), path)

	path, ok = s.Resolve("/sub/page.html")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "sub", "page.html"), path)

	_, ok = s.Resolve("/missing.html")
	assert.False(t, ok)

	// Directories are not served.
	_, ok = s.Resolve("/sub")
	assert.False(t, ok)
}

func TestResolveTraversalContained(t *testing.T) {
	s, root := newTestServer(t)

	secret := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top"), 0o644))

	// Cleaned paths cannot climb above the document root.
	_, ok := s.Resolve("/../secret.txt")
	assert.False(t, ok)

	// Climbing inside the root still works once the path normalizes.
	path, ok := s.Resolve("/sub/../index.html")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "index.html"), path)
}

func TestServeFull(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "index.html")

	rec := serve(s, filePath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>home</html>", rec.Body.String())
	assert.Equal(t, "17", rec.Header().Get("Content-Length"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
}

func TestServeETagRoundTrip(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "index.html")

	first := serve(s, filePath, nil)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := serve(s, filePath, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())

	// A stale validator gets the full response again.
	third := serve(s, filePath, map[string]string{"If-None-Match": "deadbeef"})
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestServeETagChangesWithContent(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "index.html")

	first := serve(s, filePath, nil)

	require.NoError(t, os.WriteFile(filePath, []byte("<html>changed!</html>"), 0o644))
	newTime := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filePath, newTime, newTime))

	second := serve(s, filePath, nil)
	assert.NotEqual(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
}

func TestServeIfModifiedSince(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "index.html")

	info, err := os.Stat(filePath)
	require.NoError(t, err)

	notChanged := serve(s, filePath, map[string]string{
		"If-Modified-Since": info.ModTime().UTC().Format(http.TimeFormat),
	})
	assert.Equal(t, http.StatusNotModified, notChanged.Code)

	changed := serve(s, filePath, map[string]string{
		"If-Modified-Since": info.ModTime().Add(-time.Hour).UTC().Format(http.TimeFormat),
	})
	assert.Equal(t, http.StatusOK, changed.Code)

	// Unparseable dates are ignored.
	garbage := serve(s, filePath, map[string]string{"If-Modified-Since": "not-a-date"})
	assert.Equal(t, http.StatusOK, garbage.Code)
}

func TestServeRange(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "data.bin")

	rec := serve(s, filePath, map[string]string{"Range": "bytes=0-4"})
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "01234", rec.Body.String())
	assert.Equal(t, "bytes 0-4/10", rec.Header().Get("Content-Range"))
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestServeRangeOpenEnded(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "data.bin")

	rec := serve(s, filePath, map[string]string{"Range": "bytes=7-"})
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "789", rec.Body.String())
	assert.Equal(t, "bytes 7-9/10", rec.Header().Get("Content-Range"))
}

func TestServeRangeClamped(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "data.bin")

	rec := serve(s, filePath, map[string]string{"Range": "bytes=5-500"})
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "56789", rec.Body.String())
	assert.Equal(t, "bytes 5-9/10", rec.Header().Get("Content-Range"))
}

func TestServeRangeFallbacks(t *testing.T) {
	s, root := newTestServer(t)
	filePath := filepath.Join(root, "data.bin")

	// Multi-range and malformed specs serve the full file.
	for _, header := range []string{"bytes=0-2,4-6", "items=0-4", "bytes=9-2", "bytes=50-60"} {
		rec := serve(s, filePath, map[string]string{"Range": header})
		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.Equal(t, "0123456789", rec.Body.String(), header)
	}
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		header     string
		start, end int64
		ok         bool
	}{
		{"bytes=0-4", 0, 4, true},
		{"bytes=-", 0, 9, true},
		{"bytes=3-", 3, 9, true},
		{"bytes=3-100", 3, 9, true},
		{"bytes=0-0", 0, 0, true},
		{"bytes=a-b", 0, 0, false},
		{"bytes=5-2", 0, 0, false},
		{"bytes=10-12", 0, 0, false},
		{"0-4", 0, 0, false},
	}
	for _, tc := range cases {
		start, end, ok := parseRange(tc.header, 10)
		assert.Equal(t, tc.ok, ok, tc.header)
		if tc.ok {
			assert.Equal(t, tc.start, start, tc.header)
			assert.Equal(t, tc.end, end, tc.header)
		}
	}
}
