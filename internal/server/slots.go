package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/config"
)

// Reasons a connection is refused a slot.
const (
	refusedTotal = "total"
	refusedPerIP = "per_ip"
)

// SlotStats is the gateway occupancy reported by /healthz.
type SlotStats struct {
	Open     int            `json:"connections"`
	IPs      int            `json:"ips"`
	Peak     int            `json:"peak"`
	MaxTotal int            `json:"max_total,omitempty"`
	MaxPerIP int            `json:"max_per_ip,omitempty"`
	Refused  map[string]int `json:"refused"`
}

// slots hands out gateway connection slots under the per-IP and total caps.
// Zero caps are unlimited.
type slots struct {
	mu       sync.Mutex
	open     map[string]int
	total    int
	peak     int
	refused  map[string]int
	maxPerIP int
	maxTotal int
}

func newSlots(cfg config.ConnectionsConfig) *slots {
	return &slots{
		open:     make(map[string]int),
		refused:  make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// claim takes a slot for ip. On success it returns a release func that frees
// the slot on its first call; otherwise release is nil and refusal names the
// cap that was hit.
func (s *slots) claim(ip string) (release func(), refusal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.maxTotal > 0 && s.total >= s.maxTotal:
		refusal = refusedTotal
	case s.maxPerIP > 0 && s.open[ip] >= s.maxPerIP:
		refusal = refusedPerIP
	}
	if refusal != "" {
		s.refused[refusal]++
		return nil, refusal
	}

	s.open[ip]++
	s.total++
	if s.total > s.peak {
		s.peak = s.total
	}
	var once sync.Once
	return func() { once.Do(func() { s.free(ip) }) }, ""
}

func (s *slots) free(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open[ip] <= 1 {
		delete(s.open, ip)
	} else {
		s.open[ip]--
	}
	s.total--
}

func (s *slots) stats() SlotStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	refused := make(map[string]int, len(s.refused))
	for k, v := range s.refused {
		refused[k] = v
	}
	return SlotStats{
		Open:     s.total,
		IPs:      len(s.open),
		Peak:     s.peak,
		MaxTotal: s.maxTotal,
		MaxPerIP: s.maxPerIP,
		Refused:  refused,
	}
}

// remoteClient returns the client address a request came from. Behind a
// reverse proxy the first X-Forwarded-For hop wins, then X-Real-IP.
func remoteClient(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return hostOf(r.RemoteAddr)
}

// hostOf strips the port from host:port, leaving bare hosts alone.
func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
