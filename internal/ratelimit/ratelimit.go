// Package ratelimit implements the per-client sliding-window request
// counter used by the security pipeline.
package ratelimit

import (
	"sync"
	"time"
)

const minuteWindow = 60 * time.Second

// Limiter tracks request timestamps per client IP. The minute window is a
// pruned timestamp slice; the hourly limit uses a coarse bucket counter so
// pruning stays bounded to 60 seconds of entries.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	perHour   int

	requests    map[string][]time.Time
	hourBuckets map[string]*hourBucket
}

type hourBucket struct {
	start time.Time
	count int
}

// New creates a limiter with the given per-minute and per-hour thresholds.
func New(perMinute, perHour int) *Limiter {
	return &Limiter{
		perMinute:   perMinute,
		perHour:     perHour,
		requests:    make(map[string][]time.Time),
		hourBuckets: make(map[string]*hourBucket),
	}
}

// CheckAndRecord prunes the client's window, then either denies (at or
// above a threshold) or records now as a new request. The first request
// from an unseen IP always succeeds.
func (l *Limiter) CheckAndRecord(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.requests[ip], now)
	if len(recent) >= l.perMinute {
		l.requests[ip] = recent
		return false
	}

	bucket := l.hourBuckets[ip]
	hourStart := now.Truncate(time.Hour)
	if bucket == nil || !bucket.start.Equal(hourStart) {
		bucket = &hourBucket{start: hourStart}
		l.hourBuckets[ip] = bucket
	}
	if bucket.count >= l.perHour {
		l.requests[ip] = recent
		return false
	}

	bucket.count++
	l.requests[ip] = append(recent, now)
	return true
}

// CountRecent returns the number of tracked requests from ip within the
// last 60 seconds. Used as the recent-activity proxy for the suspicious
// request threshold.
func (l *Limiter) CountRecent(ip string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.requests[ip], now)
	l.requests[ip] = recent
	return len(recent)
}

// TotalTracked returns the total number of timestamps currently held
// across all clients.
func (l *Limiter) TotalTracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, reqs := range l.requests {
		total += len(reqs)
	}
	return total
}

// UniqueIPs returns the number of clients with at least one tracked entry.
func (l *Limiter) UniqueIPs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func prune(entries []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-minuteWindow)
	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
