// Package blocklist implements the time-bounded IP block registry.
package blocklist

import (
	"sync"
	"time"
)

// List maps blocked IPs to the time the block started. A block is active
// while now-start < duration; expired entries are removed lazily on lookup.
type List struct {
	mu       sync.Mutex
	duration time.Duration
	blocked  map[string]time.Time
}

// New creates a block list with the given uniform block duration.
func New(duration time.Duration) *List {
	return &List{
		duration: duration,
		blocked:  make(map[string]time.Time),
	}
}

// Block registers ip as blocked starting at now. Re-blocking an already
// blocked IP resets its timer.
func (l *List) Block(ip string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked[ip] = now
}

// IsBlocked reports whether ip currently has an active block. Stale
// entries encountered on the way are dropped.
func (l *List) IsBlocked(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	start, ok := l.blocked[ip]
	if !ok {
		return false
	}
	if now.Sub(start) < l.duration {
		return true
	}
	delete(l.blocked, ip)
	return false
}

// ActiveBlocks returns the remaining block time in whole seconds for every
// IP whose block has not yet expired.
func (l *List) ActiveBlocks(now time.Time) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	active := make(map[string]int)
	for ip, start := range l.blocked {
		elapsed := now.Sub(start)
		if elapsed < l.duration {
			active[ip] = int((l.duration - elapsed).Seconds())
		}
	}
	return active
}
