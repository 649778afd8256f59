package antispam

import (
	"testing"
	"time"
)

func newTestTracker(cfg Config) (*Tracker, *time.Time) {
	tr := NewTracker(cfg)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestRateLimit(t *testing.T) {
	tr, now := newTestTracker(Config{Enabled: true, MaxRequests: 3, Window: 10 * time.Second})

	for i := 0; i < 3; i++ {
		if !tr.Allow().Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		*now = now.Add(time.Second)
	}

	res := tr.Allow()
	if res.Allowed {
		t.Fatal("4th request should be throttled")
	}
	// the first request leaves the window 10s after it was sent, 3s ago
	if res.Wait != 7*time.Second {
		t.Errorf("Wait = %v, want 7s", res.Wait)
	}

	*now = now.Add(7 * time.Second)
	if !tr.Allow().Allowed {
		t.Error("request after the oldest expired should be allowed")
	}
	if tr.Allow().Allowed {
		t.Error("window should be full again")
	}
}

func TestRefusedRequestsAreNotRecorded(t *testing.T) {
	tr, now := newTestTracker(Config{Enabled: true, MaxRequests: 1, Window: time.Second})

	tr.Allow()
	for i := 0; i < 5; i++ {
		if tr.Allow().Allowed {
			t.Fatal("throttled request allowed")
		}
	}
	*now = now.Add(time.Second)
	if !tr.Allow().Allowed {
		t.Error("refused requests extended the throttle")
	}
}

func TestDisabled(t *testing.T) {
	tr, _ := newTestTracker(Config{Enabled: false, MaxRequests: 1, Window: time.Hour})
	for i := 0; i < 10; i++ {
		if !tr.Allow().Allowed {
			t.Fatal("disabled tracker throttled a request")
		}
	}
}

func TestReset(t *testing.T) {
	tr, _ := newTestTracker(Config{Enabled: true, MaxRequests: 2, Window: time.Minute})
	tr.Allow()
	tr.Allow()
	if tr.Allow().Allowed {
		t.Fatal("expected throttle")
	}
	tr.Reset()
	if !tr.Allow().Allowed {
		t.Error("Reset should clear the window")
	}
}

func TestConfigFromYAML(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		max      int
		window   int
		expected Config
	}{
		{"explicit", true, 5, 30, Config{Enabled: true, MaxRequests: 5, Window: 30 * time.Second}},
		{"zeros keep defaults", true, 0, 0, DefaultConfig()},
		{"disabled", false, 0, 0, Config{Enabled: false, MaxRequests: 20, Window: 10 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfigFromYAML(tt.enabled, tt.max, tt.window); got != tt.expected {
				t.Errorf("ConfigFromYAML = %+v, want %+v", got, tt.expected)
			}
		})
	}
}
