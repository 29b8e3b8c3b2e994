package transport

import "sync"

// LivenessTracker counts consecutive long-poll read timeouts and signals
// when the worker should abandon the current connection and reconnect: a
// periodic, cheap check that decides when a resource has gone stale, where
// "staleness" is a run of failed reads rather than an idle TTL.
type LivenessTracker struct {
	mu        sync.Mutex
	threshold int
	timeouts  int
}

// NewLivenessTracker returns a tracker that signals reconnection once
// threshold consecutive timeouts have been recorded. A threshold <= 0 is
// treated as 1.
func NewLivenessTracker(threshold int) *LivenessTracker {
	if threshold <= 0 {
		threshold = 1
	}
	return &LivenessTracker{threshold: threshold}
}

// RecordTimeout registers a single long-poll read timeout.
func (l *LivenessTracker) RecordTimeout() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeouts++
}

// Reset clears the consecutive-timeout count after any successful batch.
func (l *LivenessTracker) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeouts = 0
}

// ShouldReconnect reports whether the consecutive-timeout count has reached
// the configured threshold.
func (l *LivenessTracker) ShouldReconnect() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timeouts >= l.threshold
}

// ConsecutiveTimeouts returns the current count, for logging/diagnostics.
func (l *LivenessTracker) ConsecutiveTimeouts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timeouts
}
