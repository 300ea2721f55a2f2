// Package monitor records and aggregates security events: attack history,
// per-IP threat scores, lifetime counters and the append-only event logs.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/models"
)

var (
	attacksDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_attacks_detected_total",
		Help: "Total security attacks detected",
	}, []string{"attack_type"})

	requestsBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_requests_blocked_total",
		Help: "Total requests blocked by security",
	}, []string{"block_type"})
)

// Broadcaster fans recorded events out to live subscribers. The websocket
// hub implements it; a nil broadcaster disables the feed.
type Broadcaster interface {
	Broadcast(messageType string, payload any)
}

// Monitor is the attack-monitoring service. One instance is shared by all
// request handlers; a single mutex guards its in-memory state.
type Monitor struct {
	cfg            config.MonitorConfig
	scoreThreshold int
	logger         *logrus.Logger

	mu      sync.Mutex
	stats   models.AttackStatistics
	history *history
	scores  map[string]int

	writer      *logWriter
	publisher   *Publisher
	broadcaster Broadcaster
}

// New creates a monitor. publisher and broadcaster may be nil.
func New(cfg config.MonitorConfig, scoreThreshold int, logger *logrus.Logger, publisher *Publisher) (*Monitor, error) {
	writer, err := newLogWriter(cfg.LogDir, logger)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		cfg:            cfg,
		scoreThreshold: scoreThreshold,
		logger:         logger,
		stats:          models.AttackStatistics{AttackTypes: make(map[string]int)},
		history:        newHistory(cfg.HistorySize),
		scores:         make(map[string]int),
		writer:         writer,
		publisher:      publisher,
	}, nil
}

// SetBroadcaster attaches the live-feed hub. Must be called before traffic
// starts flowing.
func (m *Monitor) SetBroadcaster(b Broadcaster) {
	m.broadcaster = b
}

// RecordAttack registers an attack event: counters, threat score, bounded
// history, persistent log, metrics and (for HIGH threats) an alert.
func (m *Monitor) RecordAttack(event models.AttackEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ThreatLevel == "" {
		event.ThreatLevel = ThreatLevel(event.AttackType)
	}

	m.mu.Lock()
	m.stats.TotalAttacks++
	m.stats.AttackTypes[event.AttackType]++
	m.scores[event.ClientIP] += ThreatScore(event.AttackType)
	m.history.add(event)
	m.mu.Unlock()

	attacksDetected.WithLabelValues(event.AttackType).Inc()

	if m.cfg.EnableDetailedLogging {
		m.writer.append("attacks", event, event.Timestamp)
	}

	m.logger.WithFields(logrus.Fields{
		"attack_type":  event.AttackType,
		"client_ip":    event.ClientIP,
		"url":          event.URL,
		"threat_level": event.ThreatLevel,
	}).Warnf("attack detected: %s", event.Details)

	if m.broadcaster != nil {
		m.broadcaster.Broadcast("attack", event)
	}
	if m.publisher != nil {
		m.publisher.PublishAttack(context.Background(), event)
	}

	if event.ThreatLevel == models.ThreatHigh {
		m.raiseAlert(event)
	}
}

// raiseAlert signals a HIGH-threat attack. Alerting is observability only;
// it never fails the request.
func (m *Monitor) raiseAlert(event models.AttackEvent) {
	alert := models.Alert{
		ID:         event.ID,
		Level:      "CRITICAL",
		Title:      fmt.Sprintf("%s attack detected", event.AttackType),
		Message:    event.Details,
		AttackType: event.AttackType,
		SourceIP:   event.ClientIP,
		Timestamp:  event.Timestamp,
	}

	m.logger.WithFields(logrus.Fields{
		"alert":       true,
		"client_ip":   event.ClientIP,
		"attack_type": event.AttackType,
		"url":         event.URL,
	}).Error("major attack alert")

	if m.broadcaster != nil {
		m.broadcaster.Broadcast("alert", alert)
	}
	if m.publisher != nil {
		m.publisher.PublishAlert(context.Background(), alert)
	}
}

// RecordBlocked registers a denied request. req may be nil when the denial
// happens outside a request context.
func (m *Monitor) RecordBlocked(ip, reason string, req *models.RequestInfo) {
	m.mu.Lock()
	m.stats.BlockedRequests++
	m.mu.Unlock()

	requestsBlocked.WithLabelValues(blockType(reason)).Inc()

	entry := models.BlockedEvent{
		Timestamp: time.Now(),
		ClientIP:  ip,
		Reason:    reason,
		Method:    "UNKNOWN",
		URL:       "UNKNOWN",
		Type:      "BLOCKED",
	}
	if req != nil {
		entry.Method = req.Method
		entry.URL = req.URL
	}

	if m.cfg.EnableDetailedLogging {
		m.writer.append("blocked", entry, entry.Timestamp)
	}

	m.logger.WithFields(logrus.Fields{
		"client_ip": ip,
		"reason":    reason,
	}).Info("request blocked")
}

// RecordSuspicious registers a pattern-matched request that was still
// allowed through.
func (m *Monitor) RecordSuspicious(ip, reason string, req models.RequestInfo) {
	m.mu.Lock()
	m.stats.SuspiciousRequests++
	m.mu.Unlock()

	entry := models.SuspiciousEvent{
		Timestamp: time.Now(),
		ClientIP:  ip,
		Reason:    reason,
		Method:    req.Method,
		URL:       req.URL,
		UserAgent: req.UserAgent,
		Type:      "SUSPICIOUS",
	}

	if m.cfg.EnableDetailedLogging {
		m.writer.append("suspicious", entry, entry.Timestamp)
	}

	m.logger.WithFields(logrus.Fields{
		"client_ip": ip,
		"reason":    reason,
		"url":       req.URL,
	}).Info("suspicious request")
}

// RecordRateLimitHit bumps the rate-limit denial counter.
func (m *Monitor) RecordRateLimitHit() {
	m.mu.Lock()
	m.stats.RateLimitHits++
	m.mu.Unlock()
}

// RecordIPBlock bumps the block counter.
func (m *Monitor) RecordIPBlock() {
	m.mu.Lock()
	m.stats.IPBlocks++
	m.mu.Unlock()
}

// AnalyzePatterns groups the retained history over the given window by
// attack type, attacker, targeted path and threat level.
func (m *Monitor) AnalyzePatterns(windowHours int) models.PatternAnalysis {
	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	m.mu.Lock()
	events := m.history.snapshot()
	m.mu.Unlock()

	analysis := models.PatternAnalysis{
		TimeWindowHours:   windowHours,
		AttackTypes:       make(map[string]int),
		TopAttackers:      make(map[string]int),
		MostTargetedPaths: make(map[string]int),
		ThreatLevels:      make(map[string]int),
	}

	for _, e := range events {
		if !e.Timestamp.After(cutoff) {
			continue
		}
		analysis.TotalAttacks++
		analysis.AttackTypes[e.AttackType]++
		analysis.TopAttackers[e.ClientIP]++
		analysis.ThreatLevels[e.ThreatLevel]++

		path := e.URL
		if i := strings.Index(path, "?"); i >= 0 {
			path = path[:i]
		}
		analysis.MostTargetedPaths[path]++
	}

	return analysis
}

// HighThreatIPs lists IPs whose cumulative score is at or above threshold,
// descending by score. A non-positive threshold uses the configured
// default. LastSeen is nil when every contributing event has been evicted
// from the bounded history.
func (m *Monitor) HighThreatIPs(threshold int) []models.ThreatIP {
	if threshold <= 0 {
		threshold = m.scoreThreshold
	}

	m.mu.Lock()
	events := m.history.snapshot()
	out := make([]models.ThreatIP, 0)
	for ip, score := range m.scores {
		if score >= threshold {
			out = append(out, models.ThreatIP{
				IP:          ip,
				ThreatScore: score,
				LastSeen:    lastSeen(events, ip),
			})
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ThreatScore > out[j].ThreatScore
	})
	return out
}

func lastSeen(events []models.AttackEvent, ip string) *time.Time {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ClientIP == ip {
			t := events[i].Timestamp
			return &t
		}
	}
	return nil
}

// Stats is the monitoring snapshot served by /monitoring/stats.
type Stats struct {
	AttackStatistics       models.AttackStatistics `json:"attack_statistics"`
	RecentAttacksCount     int                     `json:"recent_attacks_count"`
	UniqueAttackersTracked int                     `json:"unique_attackers_tracked"`
	HighThreatIPsCount     int                     `json:"high_threat_ips_count"`
	Config                 config.MonitorConfig    `json:"config"`
	CurrentTime            time.Time               `json:"current_time"`
}

// Snapshot returns the current monitoring statistics.
func (m *Monitor) Snapshot() Stats {
	highThreat := len(m.HighThreatIPs(0))

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.stats
	stats.AttackTypes = make(map[string]int, len(m.stats.AttackTypes))
	for k, v := range m.stats.AttackTypes {
		stats.AttackTypes[k] = v
	}

	return Stats{
		AttackStatistics:       stats,
		RecentAttacksCount:     m.history.len(),
		UniqueAttackersTracked: len(m.scores),
		HighThreatIPsCount:     highThreat,
		Config:                 m.cfg,
		CurrentTime:            time.Now(),
	}
}

// CleanupOldLogs removes persisted log files older than the configured
// retention window.
func (m *Monitor) CleanupOldLogs() {
	retention := time.Duration(m.cfg.RetentionDays) * 24 * time.Hour
	m.writer.cleanup(retention, time.Now())
}

func blockType(reason string) string {
	if strings.Contains(reason, "Rate limit") {
		return "rate_limit"
	}
	if strings.Contains(reason, "IP is blocked") {
		return "ip_block"
	}
	return "threat"
}
