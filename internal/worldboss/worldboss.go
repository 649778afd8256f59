// Package worldboss coordinates damage against guild-scoped world bosses.
//
// Every mutation of a boss runs under a mutex keyed by (guild, boss) and goes
// through the repository's atomic ApplyBossDamage, so concurrent hits from
// many players never lose damage and exactly one hit records the kill.
package worldboss

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/keylock"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// Coordinator applies damage and reports boss state.
type Coordinator struct {
	repo  storage.Repository
	cat   *catalog.Catalog
	locks *keylock.Map
	now   func() time.Time
}

// New creates a Coordinator. A nil clock uses time.Now.
func New(repo storage.Repository, cat *catalog.Catalog, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{repo: repo, cat: cat, locks: keylock.New(), now: now}
}

// Contribution is one player's share of the damage dealt to a boss.
type Contribution struct {
	PlayerID string
	Damage   int
}

// Status is the current state of a boss in one guild.
type Status struct {
	Boss  *catalog.Boss
	State *storage.WorldBoss
	Top   []Contribution
}

// RespawnIn returns how long until a dead boss revives, 0 when alive.
func (s Status) RespawnIn(now time.Time) time.Duration {
	if s.State.Alive || !now.Before(s.State.RespawnsAt) {
		return 0
	}
	return s.State.RespawnsAt.Sub(now)
}

func key(bossID, guildID string) string {
	return guildID + "/" + bossID
}

func respawnAfter(b *catalog.Boss) time.Duration {
	return time.Duration(b.RespawnHours) * time.Hour
}

// ApplyDamage subtracts amount from the boss's HP on behalf of playerID.
// The first hit creates the boss at full health. A dead boss rejects damage
// with InvalidTarget until it respawns.
func (c *Coordinator) ApplyDamage(ctx context.Context, bossID, guildID, playerID string, amount int) (storage.BossDamageResult, error) {
	b, ok := c.cat.Boss(bossID)
	if !ok {
		return storage.BossDamageResult{}, gameerr.NotFound("boss", bossID)
	}

	unlock := c.locks.Lock(key(bossID, guildID))
	defer unlock()

	now := c.now()
	res, err := c.repo.ApplyBossDamage(ctx, storage.BossDamage{
		BossID:       bossID,
		GuildID:      guildID,
		PlayerID:     playerID,
		Amount:       amount,
		MaxHP:        b.Health,
		RespawnAfter: respawnAfter(b),
		Now:          now,
	})
	if errors.Is(err, storage.ErrBossDead) {
		remaining := time.Duration(0)
		if res.Boss != nil {
			remaining = res.Boss.RespawnsAt.Sub(now)
		}
		return res, gameerr.WithMetadata(gameerr.CodeInvalidTarget, "boss is dead: "+bossID, map[string]string{
			gameerr.MetaID:        bossID,
			gameerr.MetaRemaining: strconv.Itoa(int(remaining.Minutes())) + "m",
		})
	}
	if err != nil {
		return res, fmt.Errorf("apply boss damage: %w", err)
	}
	return res, nil
}

// Status returns the boss state in a guild. A dead boss past its respawn time
// reports as revived; the stored row is only revived by the next hit, inside
// ApplyBossDamage, so a read never overwrites damage from another process.
// A boss nobody has attacked reports full health.
func (c *Coordinator) Status(ctx context.Context, bossID, guildID string) (Status, error) {
	b, ok := c.cat.Boss(bossID)
	if !ok {
		return Status{}, gameerr.NotFound("boss", bossID)
	}

	state, err := c.repo.GetWorldBoss(ctx, bossID, guildID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		state = &storage.WorldBoss{
			BossID:    bossID,
			GuildID:   guildID,
			CurrentHP: b.Health,
			MaxHP:     b.Health,
			Alive:     true,
			Damage:    map[string]int{},
		}
	case err != nil:
		return Status{}, fmt.Errorf("get world boss: %w", err)
	case !state.Alive && !c.now().Before(state.RespawnsAt):
		state = storage.Respawned(state)
	}

	return Status{Boss: b, State: state, Top: Ranking(state)}, nil
}

// List returns the status of every boss in the catalog for a guild.
func (c *Coordinator) List(ctx context.Context, guildID string) ([]Status, error) {
	bosses := c.cat.Bosses()
	out := make([]Status, 0, len(bosses))
	for _, b := range bosses {
		st, err := c.Status(ctx, b.ID, guildID)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Ranking orders the damage ledger by damage dealt, highest first.
func Ranking(b *storage.WorldBoss) []Contribution {
	out := make([]Contribution, 0, len(b.Damage))
	for id, dmg := range b.Damage {
		out = append(out, Contribution{PlayerID: id, Damage: dmg})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Damage != out[j].Damage {
			return out[i].Damage > out[j].Damage
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
