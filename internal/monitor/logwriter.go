package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// logWriter appends newline-delimited JSON records to per-day log files:
// attacks_YYYYMMDD.json, blocked_YYYYMMDD.json, suspicious_YYYYMMDD.json.
// Write failures are logged and swallowed; persistence is best-effort and
// never blocks the request path.
type logWriter struct {
	mu     sync.Mutex
	dir    string
	logger *logrus.Logger
}

func newLogWriter(dir string, logger *logrus.Logger) (*logWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", dir, err)
	}
	return &logWriter{dir: dir, logger: logger}, nil
}

func (w *logWriter) append(family string, record any, now time.Time) {
	data, err := json.Marshal(record)
	if err != nil {
		w.logger.WithError(err).Errorf("failed to marshal %s log entry", family)
		return
	}

	name := fmt.Sprintf("%s_%s.json", family, now.UTC().Format("20060102"))
	path := filepath.Join(w.dir, name)

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.logger.WithError(err).Errorf("failed to open %s log", family)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		w.logger.WithError(err).Errorf("failed to write %s log", family)
	}
}

// cleanup removes log files older than the retention window.
func (w *logWriter) cleanup(retention time.Duration, now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.WithError(err).Error("failed to scan log dir for cleanup")
		return
	}

	cutoff := now.Add(-retention)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(w.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				w.logger.WithError(err).Errorf("failed to remove old log %s", entry.Name())
				continue
			}
			w.logger.Infof("cleaned up old log file: %s", entry.Name())
		}
	}
}
