package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

var now = time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

// recorder settles walks and fights by deleting them from the repository.
type recorder struct {
	repo *storage.Memory

	mu     sync.Mutex
	walks  []string
	fights []string
	fail   map[string]bool
}

func (r *recorder) FinishWalk(ctx context.Context, walkID string) error {
	if r.fail[walkID] {
		return errors.New("boom")
	}
	r.mu.Lock()
	r.walks = append(r.walks, walkID)
	r.mu.Unlock()
	return r.repo.DeleteWalk(ctx, walkID)
}

func (r *recorder) ReapFight(ctx context.Context, fightID string) error {
	r.mu.Lock()
	r.fights = append(r.fights, fightID)
	r.mu.Unlock()
	return r.repo.DeleteFight(ctx, fightID)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.walks), len(r.fights)
}

func seed(t *testing.T) *storage.Memory {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMemory()
	for _, id := range []string{"1", "2", "3"} {
		if err := repo.CreatePlayer(ctx, player.New(id, "p"+id, nil, nil, now)); err != nil {
			t.Fatal(err)
		}
	}
	walks := []*storage.Walk{
		{ID: "due", PlayerID: "1", Tier: "short", StartedAt: now.Add(-time.Hour), EndsAt: now.Add(-time.Minute)},
		{ID: "later", PlayerID: "2", Tier: "long", StartedAt: now, EndsAt: now.Add(time.Hour)},
	}
	for _, w := range walks {
		if err := repo.CreateWalk(ctx, w); err != nil {
			t.Fatal(err)
		}
	}
	f := &storage.Fight{ID: "stale", PlayerID: "3", EnemyKind: storage.EnemyNPC, EnemyID: "gopnik",
		StartedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-10 * time.Minute), State: storage.FightActive}
	if err := repo.CreateFight(ctx, f); err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestTick(t *testing.T) {
	repo := seed(t)
	rec := &recorder{repo: repo}
	s := New(repo, rec, time.Minute, func() time.Time { return now })

	st := s.Tick(context.Background())
	if st.Walks != 1 || st.Fights != 1 || st.Errors != 0 {
		t.Errorf("stats = %+v", st)
	}
	if rec.walks[0] != "due" || rec.fights[0] != "stale" {
		t.Errorf("walks=%v fights=%v", rec.walks, rec.fights)
	}

	// settled rows are gone, so a second pass finds nothing
	if st := s.Tick(context.Background()); st != (Stats{}) {
		t.Errorf("second pass = %+v", st)
	}
}

func TestTickCountsFailures(t *testing.T) {
	repo := seed(t)
	rec := &recorder{repo: repo, fail: map[string]bool{"due": true}}
	s := New(repo, rec, time.Minute, func() time.Time { return now })

	st := s.Tick(context.Background())
	if st.Walks != 0 || st.Errors != 1 || st.Fights != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	repo := seed(t)
	rec := &recorder{repo: repo}
	s := New(repo, rec, time.Hour, func() time.Time { return now })

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w, f := rec.counts(); w == 1 && f == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if w, f := rec.counts(); w != 1 || f != 1 {
		t.Errorf("walks=%d fights=%d after start, want 1 and 1", w, f)
	}
}

func TestDefaults(t *testing.T) {
	s := New(storage.NewMemory(), &recorder{}, 0, nil)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	if s.now == nil {
		t.Error("nil clock should default to time.Now")
	}
}
