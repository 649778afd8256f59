// Package daily hands out the daily chest and tracks claim streaks.
package daily

import (
	"math"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// Engine rolls daily chests.
type Engine struct {
	cfg  *catalog.Daily
	loot *loot.Table
	rng  dice.Source
}

// New creates an Engine.
func New(cat *catalog.Catalog, table *loot.Table, rng dice.Source) *Engine {
	return &Engine{cfg: cat.Daily(), loot: table, rng: rng}
}

// Reward is a claimed chest.
type Reward struct {
	Player     *player.Player
	Chest      catalog.Rarity
	Money      int
	Items      []string
	Streak     int
	Multiplier float64
}

func (e *Engine) cooldown() time.Duration {
	return time.Duration(e.cfg.CooldownHours) * time.Hour
}

// Remaining returns how long until p can claim again, 0 if available now.
func (e *Engine) Remaining(p *player.Player, now time.Time) time.Duration {
	if p.LastDaily.IsZero() {
		return 0
	}
	if left := p.LastDaily.Add(e.cooldown()).Sub(now); left > 0 {
		return left
	}
	return 0
}

// NextStreak is the streak a claim at now would produce.
func (e *Engine) NextStreak(p *player.Player, now time.Time) int {
	if p.LastDaily.IsZero() {
		return 1
	}
	if now.Sub(p.LastDaily) > time.Duration(e.cfg.StreakResetHours)*time.Hour {
		return 1
	}
	return p.DailyStreak + 1
}

// Bracket returns the highest streak bonus the streak qualifies for.
func (e *Engine) Bracket(streak int) (catalog.StreakBonus, bool) {
	var best catalog.StreakBonus
	found := false
	for _, b := range e.cfg.Streaks {
		if streak >= b.Days {
			best, found = b, true
		}
	}
	return best, found
}

// Claim opens the daily chest. A claim inside the cooldown fails with an
// InsufficientResource cooldown error carrying the remaining time.
func (e *Engine) Claim(p *player.Player, now time.Time) (Reward, error) {
	if left := e.Remaining(p, now); left > 0 {
		return Reward{}, gameerr.Cooldown(left)
	}

	streak := e.NextStreak(p, now)
	bonus, hasBonus := e.Bracket(streak)

	chest := e.rollChest()
	if hasBonus && bonus.RareGuarantee && chest.Rarity.Rank() < catalog.Rare.Rank() {
		if rare, ok := e.chest(catalog.Rare); ok {
			chest = rare
		}
	}

	r := Reward{Chest: chest.Rarity, Streak: streak, Multiplier: 1}
	r.Money = dice.RangeInt(e.rng, chest.Money.Min(), chest.Money.Max())
	if hasBonus {
		r.Multiplier = bonus.Multiplier
		r.Money = int(math.Floor(float64(r.Money) * bonus.Multiplier))
		if bonus.BonusItem {
			r.Items = append(r.Items, e.loot.Random(chest.Rarity))
		}
	}
	r.Items = append(r.Items, e.loot.RandomN(chest.Rarity, chest.Items)...)

	me := p.Clone()
	me.Earn(r.Money)
	me.RecordItemsFound(len(r.Items))
	me.DailyStreak = streak
	me.LastDaily = now
	r.Player = me
	return r, nil
}

func (e *Engine) rollChest() catalog.Chest {
	table := make([]dice.Weighted[catalog.Chest], 0, len(e.cfg.Chests))
	for _, c := range e.cfg.Chests {
		table = append(table, dice.Weighted[catalog.Chest]{Value: c, Weight: c.Chance})
	}
	if c, ok := dice.WeightedPick(table, e.rng); ok {
		return c
	}
	return e.cfg.Chests[0]
}

func (e *Engine) chest(r catalog.Rarity) (catalog.Chest, bool) {
	for _, c := range e.cfg.Chests {
		if c.Rarity == r {
			return c, true
		}
	}
	return catalog.Chest{}, false
}
