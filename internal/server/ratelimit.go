package server

import (
	"sync"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/config"
)

// RequestLimiter locks out clients that keep sending malformed or unknown
// requests. Lockouts double on every repeat, up to a cap.
type RequestLimiter struct {
	mu              sync.Mutex
	clients         map[string]*strikes
	maxBadRequests  int
	lockout         time.Duration
	maxLockout      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

type strikes struct {
	bad          int
	lockedUntil  time.Time
	lockoutCount int
}

// NewRequestLimiter creates a limiter and starts its cleanup loop.
func NewRequestLimiter(cfg config.RateLimitConfig) *RequestLimiter {
	rl := &RequestLimiter{
		clients:         make(map[string]*strikes),
		maxBadRequests:  cfg.MaxBadRequests,
		lockout:         time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:      time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}
	if rl.maxBadRequests <= 0 {
		rl.maxBadRequests = 10
	}
	if rl.lockout <= 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout <= 0 {
		rl.maxLockout = 5 * time.Minute
	}

	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup loop.
func (rl *RequestLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// IsLocked reports whether ip is locked out and for how long.
func (rl *RequestLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, exists := rl.clients[ip]
	if !exists {
		return false, 0
	}
	if now := rl.now(); now.Before(s.lockedUntil) {
		return true, s.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a bad request from ip. It returns true with the
// lockout duration when the request tips ip into a lockout.
func (rl *RequestLimiter) RecordFailure(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, exists := rl.clients[ip]
	if !exists {
		s = &strikes{}
		rl.clients[ip] = s
	}

	now := rl.now()
	if now.Before(s.lockedUntil) {
		return true, s.lockedUntil.Sub(now)
	}

	s.bad++
	if s.bad < rl.maxBadRequests {
		return false, 0
	}

	s.lockoutCount++
	d := rl.lockout
	for i := 1; i < s.lockoutCount; i++ {
		// compare before doubling so the duration cannot overflow
		if d >= rl.maxLockout/2 {
			d = rl.maxLockout
			break
		}
		d *= 2
	}
	d = min(d, rl.maxLockout)

	s.lockedUntil = now.Add(d)
	s.bad = 0
	return true, d
}

// RecordSuccess clears the strike count of ip.
func (rl *RequestLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if s, exists := rl.clients[ip]; exists && s.lockoutCount == 0 {
		delete(rl.clients, ip)
	} else if exists {
		s.bad = 0
	}
}

// Strikes returns the bad requests counted against ip since its last lockout.
func (rl *RequestLimiter) Strikes(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if s, exists := rl.clients[ip]; exists {
		return s.bad
	}
	return 0
}

func (rl *RequestLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup forgets clients unlocked for ten minutes without new strikes.
func (rl *RequestLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for ip, s := range rl.clients {
		if s.lockedUntil.Before(cutoff) && s.bad == 0 {
			delete(rl.clients, ip)
		}
	}
}
