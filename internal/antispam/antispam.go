// Package antispam throttles how fast one connection may send requests.
package antispam

import (
	"sync"
	"time"
)

// Config holds flood protection settings.
type Config struct {
	Enabled     bool          // Whether throttling is enabled
	MaxRequests int           // Max requests allowed in the window
	Window      time.Duration // Sliding window length
}

// DefaultConfig returns sensible defaults for a chat-driven client.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxRequests: 20,
		Window:      10 * time.Second,
	}
}

// ConfigFromYAML creates a Config from YAML-loaded values. Non-positive
// values keep the defaults.
func ConfigFromYAML(enabled bool, maxRequests, windowSeconds int) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if maxRequests > 0 {
		cfg.MaxRequests = maxRequests
	}
	if windowSeconds > 0 {
		cfg.Window = time.Duration(windowSeconds) * time.Second
	}
	return cfg
}

// Tracker counts the recent requests of one connection.
type Tracker struct {
	mu     sync.Mutex
	config Config
	times  []time.Time // accepted requests inside the window, oldest first
	now    func() time.Time
}

// NewTracker creates a tracker with the given config.
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config: config,
		times:  make([]time.Time, 0, max(config.MaxRequests, 0)),
		now:    time.Now,
	}
}

// CheckResult is the outcome of Allow.
type CheckResult struct {
	Allowed bool
	Wait    time.Duration // until the next request is accepted, when refused
}

// Allow records a request and reports whether it may proceed. Refused
// requests are not recorded.
func (t *Tracker) Allow() CheckResult {
	if !t.config.Enabled || t.config.MaxRequests <= 0 {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	if len(t.times) >= t.config.MaxRequests {
		return CheckResult{Wait: t.times[0].Add(t.config.Window).Sub(now)}
	}
	t.times = append(t.times, now)
	return CheckResult{Allowed: true}
}

// cleanup drops requests that left the window.
func (t *Tracker) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.Window)
	kept := t.times[:0]
	for _, at := range t.times {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.times = kept
}

// Reset forgets every recorded request.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = t.times[:0]
}
