package models

import "time"

// Attack type classifications used by the pattern catalog and monitor.
const (
	AttackDirectoryTraversal = "directory_traversal"
	AttackSQLInjection       = "sql_injection"
	AttackXSS                = "xss_attacks"
	AttackPathTraversal      = "path_traversal"
	AttackFileInclusion      = "file_inclusion"
	AttackScanning           = "scanning"
	AttackOther              = "other"
)

// Threat levels assigned to attack events.
const (
	ThreatHigh    = "HIGH"
	ThreatMedium  = "MEDIUM"
	ThreatLow     = "LOW"
	ThreatUnknown = "UNKNOWN"
)

// AttackEvent represents a single detected attack attempt. Immutable once
// created; appended to the monitor's bounded history and the attack log.
type AttackEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ClientIP    string    `json:"client_ip"`
	AttackType  string    `json:"attack_type"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	UserAgent   string    `json:"user_agent"`
	Details     string    `json:"details"`
	ThreatLevel string    `json:"threat_level"`
}

// BlockedEvent records a denied request. Only counted in memory; the full
// record goes to the blocked-events log.
type BlockedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ClientIP  string    `json:"client_ip"`
	Reason    string    `json:"reason"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
}

// SuspiciousEvent records a request that matched the pattern catalog but
// stayed under the auto-block threshold.
type SuspiciousEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ClientIP  string    `json:"client_ip"`
	Reason    string    `json:"reason"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	UserAgent string    `json:"user_agent"`
	Type      string    `json:"type"`
}

// RequestInfo is the slice of an HTTP request the monitor needs for its
// event records.
type RequestInfo struct {
	Method    string
	URL       string
	UserAgent string
}

// AttackStatistics holds process-lifetime aggregate counters.
type AttackStatistics struct {
	TotalAttacks       int            `json:"total_attacks"`
	BlockedRequests    int            `json:"blocked_requests"`
	SuspiciousRequests int            `json:"suspicious_requests"`
	RateLimitHits      int            `json:"rate_limit_hits"`
	IPBlocks           int            `json:"ip_blocks"`
	AttackTypes        map[string]int `json:"attack_types"`
}

// ThreatIP is one entry of the high-threat listing, sorted by score.
type ThreatIP struct {
	IP          string     `json:"ip"`
	ThreatScore int        `json:"threat_score"`
	LastSeen    *time.Time `json:"last_seen"`
}

// PatternAnalysis is the result of a time-windowed query over the in-memory
// attack history.
type PatternAnalysis struct {
	TimeWindowHours   int            `json:"time_window_hours"`
	TotalAttacks      int            `json:"total_attacks"`
	AttackTypes       map[string]int `json:"attack_types"`
	TopAttackers      map[string]int `json:"top_attackers"`
	MostTargetedPaths map[string]int `json:"most_targeted_paths"`
	ThreatLevels      map[string]int `json:"threat_levels"`
}

// Alert is pushed to the live feed and the Redis alert channel when a
// HIGH-threat attack is recorded.
type Alert struct {
	ID         string    `json:"id"`
	Level      string    `json:"level"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	AttackType string    `json:"attack_type,omitempty"`
	SourceIP   string    `json:"source_ip,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
