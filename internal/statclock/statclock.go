// Package statclock advances a character's needs with the passage of real time.
package statclock

import (
	"math"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// DefaultGranularity is the shortest interval that triggers an update.
const DefaultGranularity = 6 * time.Minute

// Clock applies need decay and regeneration. It holds no mutable state.
type Clock struct {
	stats       *catalog.Stats
	bonuses     func(classID string) catalog.ClassBonuses
	granularity time.Duration
}

// Update is the outcome of advancing a player.
type Update struct {
	Patch      player.Patch
	Hours      float64
	Suppressed bool // below granularity, dead, or never stamped before
	Died       bool // health reached 0 during this update
}

// New creates a Clock using the catalog's need rules.
// A non-positive granularity uses DefaultGranularity.
func New(cat *catalog.Catalog, granularity time.Duration) *Clock {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Clock{
		stats:       cat.Stats(),
		bonuses:     cat.Bonuses,
		granularity: granularity,
	}
}

// Granularity returns the minimum interval between updates.
func (c *Clock) Granularity() time.Duration {
	return c.granularity
}

// Advance brings p up to now. p itself is not modified.
func (c *Clock) Advance(p *player.Player, now time.Time) Update {
	if p.IsDead {
		return Update{Suppressed: true}
	}
	if p.LastStatUpdate.IsZero() {
		return Update{Suppressed: true, Patch: player.Patch{LastStatUpdate: &now}}
	}

	elapsed := now.Sub(p.LastStatUpdate)
	if elapsed < c.granularity {
		return Update{Suppressed: true}
	}

	hours := elapsed.Hours()
	patch := c.Apply(p, hours)
	patch.LastStatUpdate = &now

	return Update{
		Patch: patch,
		Hours: hours,
		Died:  patch.IsDead != nil && *patch.IsDead,
	}
}

// Apply computes the need changes for hoursPassed without looking at the clock.
func (c *Clock) Apply(p *player.Player, hoursPassed float64) player.Patch {
	s := c.stats
	next := p.Clone()

	hunger := math.Max(0, float64(p.Hunger)-s.Hunger.DecayPerHour*hoursPassed)
	thirst := math.Max(0, float64(p.Thirst)-s.Thirst.DecayPerHour*hoursPassed)
	energy := math.Min(float64(needMax(s.Energy)), float64(p.Energy)+s.Energy.RegenPerHour*hoursPassed)

	damage := 0.0
	if hunger <= float64(s.Hunger.CriticalThreshold) {
		damage += s.Hunger.HealthDamageWhenCritical * hoursPassed
	}
	if thirst <= float64(s.Thirst.CriticalThreshold) {
		damage += s.Thirst.HealthDamageWhenCritical * hoursPassed
	}

	health := float64(p.Health)
	nourished := float64(s.RegenMinNourishment)
	if damage == 0 && hunger > nourished && thirst > nourished {
		regen := s.Health.RegenPerHour * (1 + c.bonuses(p.Class).HealthRegen)
		health = math.Min(float64(p.MaxHealth), health+regen*hoursPassed)
	} else {
		health = math.Max(0, health-damage)
	}

	addiction := float64(p.Addiction)
	if p.Addiction >= s.Addiction.WithdrawalThreshold {
		addiction = math.Max(0, addiction-s.Addiction.DecayPerHour*hoursPassed)
	}

	next.Hunger = round(hunger)
	next.Thirst = round(thirst)
	next.Energy = round(energy)
	next.Health = round(health)
	next.Addiction = round(addiction)
	next.Clamp()
	if next.Health <= 0 {
		next.IsDead = true
	}

	return player.Diff(p, next)
}

func needMax(r catalog.NeedRule) int {
	if r.Max > 0 {
		return r.Max
	}
	return player.NeedMax
}

// round rounds half up.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
