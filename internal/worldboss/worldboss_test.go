package worldboss

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCoordinator() (*Coordinator, *clock) {
	clk := &clock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	return New(storage.NewMemory(), catalog.MustDefault(), clk.Now), clk
}

func TestTwoHitsKillBoss(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCoordinator()

	res, err := c.ApplyDamage(ctx, "trash_king", "g1", "alice", 300)
	if err != nil {
		t.Fatal(err)
	}
	if res.Boss.CurrentHP != 200 || res.Killed {
		t.Errorf("after first hit: hp=%d killed=%v", res.Boss.CurrentHP, res.Killed)
	}

	res, err = c.ApplyDamage(ctx, "trash_king", "g1", "bob", 300)
	if err != nil {
		t.Fatal(err)
	}
	if res.Boss.CurrentHP != 0 || !res.Killed || res.Boss.KilledBy != "bob" {
		t.Errorf("after second hit: %+v", res.Boss)
	}
	if res.Boss.Damage["alice"] != 300 || res.Boss.Damage["bob"] != 200 {
		t.Errorf("damage ledger = %v", res.Boss.Damage)
	}
	if want := clk.Now().Add(24 * time.Hour); !res.Boss.RespawnsAt.Equal(want) {
		t.Errorf("RespawnsAt = %v, want %v", res.Boss.RespawnsAt, want)
	}

	_, err = c.ApplyDamage(ctx, "trash_king", "g1", "carol", 10)
	if gameerr.CodeOf(err) != gameerr.CodeInvalidTarget {
		t.Errorf("hit on dead boss error = %v, want INVALID_TARGET", err)
	}
}

func TestConcurrentDamageSingleKill(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator()

	var wg sync.WaitGroup
	var mu sync.Mutex
	kills, dealt := 0, 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.ApplyDamage(ctx, "trash_king", "g1", fmt.Sprintf("p%d", i), 30)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			dealt += res.Dealt
			if res.Killed {
				kills++
			}
		}(i)
	}
	wg.Wait()

	if kills != 1 {
		t.Errorf("kills = %d, want 1", kills)
	}
	if dealt != 500 {
		t.Errorf("total dealt = %d, want 500", dealt)
	}
	st, err := c.Status(ctx, "trash_king", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if st.State.CurrentHP != 0 || st.State.Alive {
		t.Errorf("state = %+v, want dead at 0", st.State)
	}
}

func TestGuildsAreIndependent(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator()

	if _, err := c.ApplyDamage(ctx, "trash_king", "g1", "a", 500); err != nil {
		t.Fatal(err)
	}
	st, err := c.Status(ctx, "trash_king", "g2")
	if err != nil {
		t.Fatal(err)
	}
	if !st.State.Alive || st.State.CurrentHP != 500 {
		t.Errorf("other guild boss = %+v", st.State)
	}
}

func TestStatusRevivesAfterRespawn(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCoordinator()

	if _, err := c.ApplyDamage(ctx, "trash_king", "g1", "a", 1000); err != nil {
		t.Fatal(err)
	}
	st, _ := c.Status(ctx, "trash_king", "g1")
	if st.State.Alive {
		t.Fatal("boss should be dead")
	}
	if got := st.RespawnIn(clk.Now()); got != 24*time.Hour {
		t.Errorf("RespawnIn = %v, want 24h", got)
	}

	clk.Advance(24 * time.Hour)
	st, err := c.Status(ctx, "trash_king", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if !st.State.Alive || st.State.CurrentHP != 500 || len(st.Top) != 0 {
		t.Errorf("revived state = %+v", st.State)
	}
}

// interleavedRepo lands a hit from another process between the boss read
// and anything the caller does next.
type interleavedRepo struct {
	storage.Repository
	hit func()
}

func (r *interleavedRepo) GetWorldBoss(ctx context.Context, bossID, guildID string) (*storage.WorldBoss, error) {
	b, err := r.Repository.GetWorldBoss(ctx, bossID, guildID)
	if hit := r.hit; hit != nil {
		r.hit = nil
		hit()
	}
	return b, err
}

func TestStatusKeepsDamageFromRevivingHit(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	mem := storage.NewMemory()
	repo := &interleavedRepo{Repository: mem}
	c := New(repo, catalog.MustDefault(), clk.Now)

	if _, err := c.ApplyDamage(ctx, "trash_king", "g1", "a", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance(25 * time.Hour)

	repo.hit = func() {
		if _, err := mem.ApplyBossDamage(ctx, storage.BossDamage{
			BossID:       "trash_king",
			GuildID:      "g1",
			PlayerID:     "b",
			Amount:       50,
			MaxHP:        500,
			RespawnAfter: 24 * time.Hour,
			Now:          clk.Now(),
		}); err != nil {
			t.Errorf("concurrent hit: %v", err)
		}
	}
	st, err := c.Status(ctx, "trash_king", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if !st.State.Alive {
		t.Error("status after respawn should report the boss alive")
	}

	stored, err := mem.GetWorldBoss(ctx, "trash_king", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Alive || stored.CurrentHP != 450 || stored.Damage["b"] != 50 {
		t.Errorf("stored boss = %+v, want the reviving hit kept", stored)
	}
}

func TestUnknownBoss(t *testing.T) {
	c, _ := newTestCoordinator()
	if _, err := c.ApplyDamage(context.Background(), "godzilla", "g", "a", 1); gameerr.CodeOf(err) != gameerr.CodeEntityNotFound {
		t.Errorf("error = %v, want ENTITY_NOT_FOUND", err)
	}
}

func TestListAndRanking(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCoordinator()

	c.ApplyDamage(ctx, "metro_ghost", "g", "b", 50)
	c.ApplyDamage(ctx, "metro_ghost", "g", "a", 50)
	c.ApplyDamage(ctx, "metro_ghost", "g", "c", 120)

	list, err := c.List(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(catalog.MustDefault().Bosses()) {
		t.Errorf("List returned %d bosses", len(list))
	}

	var ghost Status
	for _, st := range list {
		if st.Boss.ID == "metro_ghost" {
			ghost = st
		}
	}
	want := []Contribution{{"c", 120}, {"a", 50}, {"b", 50}}
	if len(ghost.Top) != len(want) {
		t.Fatalf("Top = %v", ghost.Top)
	}
	for i := range want {
		if ghost.Top[i] != want[i] {
			t.Errorf("Top[%d] = %v, want %v", i, ghost.Top[i], want[i])
		}
	}
}
