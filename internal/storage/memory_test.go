package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	if err := m.CreatePlayer(context.Background(), player.New("p1", "Вася", nil, nil, testNow)); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return m
}

func TestPlayerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newTestRepo(t)

	if err := m.CreatePlayer(ctx, player.New("p1", "dup", nil, nil, testNow)); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreatePlayer error = %v, want ErrConflict", err)
	}

	if err := m.UpdatePlayer(ctx, "p1", player.Patch{Money: player.Ptr(777)}); err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
	p, err := m.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if p.Money != 777 {
		t.Errorf("Money = %d, want 777", p.Money)
	}

	// Returned values are copies
	p.Money = 1
	again, _ := m.GetPlayer(ctx, "p1")
	if again.Money != 777 {
		t.Error("mutating a returned player leaked into the store")
	}

	if err := m.UpdatePlayer(ctx, "ghost", player.Patch{Money: player.Ptr(1)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePlayer(ghost) error = %v, want ErrNotFound", err)
	}

	if err := m.AddItem(ctx, "p1", "beer", 2, 100); err != nil {
		t.Fatal(err)
	}
	if err := m.DeletePlayer(ctx, "p1"); err != nil {
		t.Fatalf("DeletePlayer: %v", err)
	}
	if _, err := m.GetPlayer(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlayer after delete error = %v", err)
	}
	inv, _ := m.GetInventory(ctx, "p1")
	if len(inv) != 0 {
		t.Errorf("inventory survived deletion: %+v", inv)
	}
}

func TestItemStackingRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestRepo(t)

	steps := []struct {
		item string
		qty  int
		dura int
	}{
		{"pipe", 1, 100},
		{"pipe", 2, 100},
		{"pipe", 1, 40},
		{"beer", 3, 100},
	}
	for _, s := range steps {
		if err := m.AddItem(ctx, "p1", s.item, s.qty, s.dura); err != nil {
			t.Fatalf("AddItem(%s): %v", s.item, err)
		}
	}

	inv, err := m.GetInventory(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(inv) != 3 {
		t.Fatalf("stacks = %d, want 3: %+v", len(inv), inv)
	}
	if CountItem(inv, "pipe") != 4 {
		t.Errorf("pipe count = %d, want 4", CountItem(inv, "pipe"))
	}
	if DistinctItems(inv) != 2 {
		t.Errorf("distinct = %d, want 2", DistinctItems(inv))
	}

	// Highest durability stack is consumed first
	if err := m.RemoveItem(ctx, "p1", "pipe", 3); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	inv, _ = m.GetInventory(ctx, "p1")
	for _, e := range inv {
		if e.ItemID == "pipe" && (e.Durability != 40 || e.Quantity != 1) {
			t.Errorf("remaining pipe stack = %+v, want durability 40 qty 1", e)
		}
	}
	if len(inv) != 2 {
		t.Errorf("stacks after removal = %d, want 2", len(inv))
	}

	if err := m.RemoveItem(ctx, "p1", "beer", 5); !errors.Is(err, ErrInsufficient) {
		t.Errorf("over-removal error = %v, want ErrInsufficient", err)
	}
	inv, _ = m.GetInventory(ctx, "p1")
	if CountItem(inv, "beer") != 3 {
		t.Error("failed removal must not change quantities")
	}
}

func TestFightExclusivity(t *testing.T) {
	ctx := context.Background()
	m := newTestRepo(t)

	f := &Fight{ID: "f1", PlayerID: "p1", EnemyKind: EnemyNPC, EnemyID: "gopnik", ExpiresAt: testNow.Add(10 * time.Minute)}
	if err := m.CreateFight(ctx, f); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateFight(ctx, &Fight{ID: "f2", PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("second fight error = %v, want ErrConflict", err)
	}
	if err := m.CreateFight(ctx, &Fight{ID: "f3", PlayerID: "p2", OpponentPlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duel against busy player error = %v, want ErrConflict", err)
	}

	got, err := m.GetPlayerFight(ctx, "p1")
	if err != nil || got.ID != "f1" {
		t.Fatalf("GetPlayerFight = %+v, %v", got, err)
	}

	expired, _ := m.ExpiredFights(ctx, testNow.Add(5*time.Minute))
	if len(expired) != 0 {
		t.Errorf("fight expired early: %+v", expired)
	}
	expired, _ = m.ExpiredFights(ctx, testNow.Add(10*time.Minute))
	if len(expired) != 1 {
		t.Errorf("expired = %d, want 1", len(expired))
	}

	if err := m.DeleteFight(ctx, "f1"); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteFight(ctx, "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestWalksDueAndClaim(t *testing.T) {
	ctx := context.Background()
	m := newTestRepo(t)

	w := &Walk{
		ID:       "w1",
		PlayerID: "p1",
		Tier:     "short",
		EndsAt:   testNow.Add(30 * time.Minute),
		Events:   []WalkEvent{{Type: "FIND_ITEM", Items: []string{"beer"}}},
	}
	if err := m.CreateWalk(ctx, w); err != nil {
		t.Fatal(err)
	}
	w.Events[0].Items[0] = "mutated"

	got, _ := m.GetWalk(ctx, "w1")
	if got.Events[0].Items[0] != "beer" {
		t.Error("stored walk shares event slices with caller")
	}
	if err := m.CreateWalk(ctx, &Walk{ID: "w2", PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("second walk error = %v", err)
	}

	due, _ := m.DueWalks(ctx, testNow)
	if len(due) != 0 {
		t.Errorf("walk due early")
	}
	due, _ = m.DueWalks(ctx, testNow.Add(time.Hour))
	if len(due) != 1 || due[0].ID != "w1" {
		t.Errorf("DueWalks = %+v", due)
	}

	if err := m.DeleteWalk(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteWalk(ctx, "w1"); !errors.Is(err, ErrNotFound) {
		t.Error("second claim should fail with ErrNotFound")
	}
}

func TestApplyBossDamage(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	req := BossDamage{BossID: "trash_king", GuildID: "g1", PlayerID: "a", Amount: 300, MaxHP: 500, RespawnAfter: 24 * time.Hour, Now: testNow}

	res, err := m.ApplyBossDamage(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Boss.CurrentHP != 200 || res.Killed {
		t.Errorf("after first hit hp=%d killed=%v", res.Boss.CurrentHP, res.Killed)
	}

	req.PlayerID = "b"
	res, err = m.ApplyBossDamage(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Boss.CurrentHP != 0 || !res.Killed || res.Dealt != 200 {
		t.Errorf("second hit = %+v", res)
	}
	if res.Boss.KilledBy != "b" || !res.Boss.RespawnsAt.Equal(testNow.Add(24*time.Hour)) {
		t.Errorf("kill record = %+v", res.Boss)
	}

	if _, err := m.ApplyBossDamage(ctx, req); !errors.Is(err, ErrBossDead) {
		t.Errorf("hit on dead boss error = %v, want ErrBossDead", err)
	}

	req.Now = testNow.Add(25 * time.Hour)
	res, err = m.ApplyBossDamage(ctx, req)
	if err != nil {
		t.Fatalf("hit after respawn: %v", err)
	}
	if res.Boss.CurrentHP != 200 || len(res.Boss.Damage) != 1 {
		t.Errorf("respawned boss = %+v", res.Boss)
	}
}

func TestApplyBossDamageConcurrentSingleKill(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	var mu sync.Mutex
	kills := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.ApplyBossDamage(ctx, BossDamage{
				BossID: "rat_emperor", GuildID: "g", PlayerID: string(rune('a' + i)),
				Amount: 100, MaxHP: 1000, RespawnAfter: time.Hour, Now: testNow,
			})
			if err != nil {
				return
			}
			if res.Killed {
				mu.Lock()
				kills++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if kills != 1 {
		t.Errorf("kills = %d, want exactly 1", kills)
	}
	b, _ := m.GetWorldBoss(ctx, "rat_emperor", "g")
	if b.CurrentHP != 0 || b.Alive {
		t.Errorf("boss = %+v, want dead at 0 hp", b)
	}
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i, money := range []int{50, 300, 120} {
		p := player.New(string(rune('a'+i)), "n", nil, nil, testNow)
		p.Money = money
		if err := m.CreatePlayer(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	top, err := m.GetLeaderboard(ctx, ByMoney, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Money != 300 || top[1].Money != 120 {
		t.Errorf("leaderboard = %v, %v", top[0].Money, top[1].Money)
	}
	if !ByBossesKilled.IsValid() || LeaderboardKey("name").IsValid() {
		t.Error("leaderboard key validation mismatch")
	}
}
