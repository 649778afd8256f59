// Package scheduler runs the deferred game work: finishing walks whose time
// is up and reaping fights nobody finished.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// DefaultInterval is how often the queues are polled when none is configured.
const DefaultInterval = 30 * time.Second

// Store is the part of the repository the scheduler polls.
type Store interface {
	DueWalks(ctx context.Context, now time.Time) ([]*storage.Walk, error)
	ExpiredFights(ctx context.Context, now time.Time) ([]*storage.Fight, error)
}

// Handler settles what the scheduler finds. Both calls must re-read state:
// a walk or fight may have been settled by a player command in between, in
// which case the call is a no-op.
type Handler interface {
	FinishWalk(ctx context.Context, walkID string) error
	ReapFight(ctx context.Context, fightID string) error
}

// Stats counts the work done by one pass.
type Stats struct {
	Walks  int
	Fights int
	Errors int
}

// Scheduler polls the store on a ticker.
type Scheduler struct {
	store    Store
	handler  Handler
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a scheduler. A non-positive interval uses DefaultInterval and
// a nil clock uses time.Now.
func New(store Store, handler Handler, interval time.Duration, now func() time.Time) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{store: store, handler: handler, interval: interval, now: now}
}

// Start begins the polling loop. It runs one pass immediately so work that
// came due while the process was down is not held back a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stopChan, s.done)
}

// Stop ends the loop and waits for the pass in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one pass over both queues. Failures are logged and counted; one
// bad row never blocks the rest.
func (s *Scheduler) Tick(ctx context.Context) Stats {
	var st Stats
	now := s.now()

	walks, err := s.store.DueWalks(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list due walks", "error", err)
		st.Errors++
	}
	for _, w := range walks {
		if err := s.handler.FinishWalk(ctx, w.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to finish walk", "walk", w.ID, "player", w.PlayerID, "error", err)
			st.Errors++
			continue
		}
		st.Walks++
	}

	fights, err := s.store.ExpiredFights(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list expired fights", "error", err)
		st.Errors++
	}
	for _, f := range fights {
		if err := s.handler.ReapFight(ctx, f.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to reap fight", "fight", f.ID, "player", f.PlayerID, "error", err)
			st.Errors++
			continue
		}
		st.Fights++
	}

	if st.Walks > 0 || st.Fights > 0 {
		logger.Debug("Scheduler pass", "walks", st.Walks, "fights", st.Fights, "errors", st.Errors)
	}
	return st
}
