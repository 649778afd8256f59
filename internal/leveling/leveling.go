// Package leveling keeps the experience ledger: the XP curve, level-ups and
// the rewards and unlocks granted along the way.
package leveling

import (
	"math"
	"sort"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// curveEpsilon absorbs float error so that e.g. 100 * 1.15 yields 115, not 114.
const curveEpsilon = 1e-9

// Ledger applies experience to players.
type Ledger struct {
	levels *catalog.Levels
}

// New creates a Ledger over the catalog's level curve.
func New(levels *catalog.Levels) *Ledger {
	return &Ledger{levels: levels}
}

// Reward is a level reward paired with the level that granted it.
type Reward struct {
	Level int
	catalog.LevelReward
}

// Progress is the outcome of AddXP.
type Progress struct {
	Level     int
	XP        int
	Gained    int
	LeveledUp bool
	Rewards   []Reward
	Unlocks   []string
	Items     []string // reward items the caller must grant
	Patch     player.Patch
}

// MaxLevel returns the level cap.
func (l *Ledger) MaxLevel() int {
	return l.levels.MaxLevel
}

// XPRequired returns the XP needed to advance from level to level+1:
// floor(baseXP * multiplier^(level-1)).
func (l *Ledger) XPRequired(level int) int {
	if level < 1 {
		level = 1
	}
	v := float64(l.levels.BaseXP) * math.Pow(l.levels.Multiplier, float64(level-1))
	return int(math.Floor(v + curveEpsilon))
}

// AddXP adds amount to p, levelling up as many times as the XP allows.
// Level rewards (title, money, skill points) are written to p; reward items
// are returned in Progress.Items. After the call p.XP < XPRequired(p.Level).
func (l *Ledger) AddXP(p *player.Player, amount int) Progress {
	before := p.Clone()
	if amount < 0 {
		amount = 0
	}
	p.XP += amount

	prog := Progress{Gained: amount}
	for p.Level < l.levels.MaxLevel {
		required := l.XPRequired(p.Level)
		if p.XP < required {
			break
		}
		p.XP -= required
		p.Level++
		prog.LeveledUp = true

		if reward, ok := l.levels.Rewards[p.Level]; ok {
			prog.Rewards = append(prog.Rewards, Reward{Level: p.Level, LevelReward: reward})
			if reward.Title != "" {
				p.Title = reward.Title
			}
			p.Money += reward.Money
			p.SkillPoints += reward.SkillPoints
			if reward.Item != "" {
				prog.Items = append(prog.Items, reward.Item)
			}
		}
		prog.Unlocks = append(prog.Unlocks, l.UnlocksAt(p.Level)...)
	}

	if p.Level >= l.levels.MaxLevel {
		if ceiling := l.XPRequired(l.levels.MaxLevel) - 1; p.XP > ceiling {
			p.XP = ceiling
		}
	}

	prog.Level = p.Level
	prog.XP = p.XP
	prog.Patch = player.Diff(before, p)
	return prog
}

// UnlocksAt returns the features unlocked exactly at level.
func (l *Ledger) UnlocksAt(level int) []string {
	return append([]string(nil), l.levels.Unlocks[level]...)
}

// UnlockedFeatures returns every feature unlocked at or below level, in level order.
func (l *Ledger) UnlockedFeatures(level int) []string {
	levels := make([]int, 0, len(l.levels.Unlocks))
	for lv := range l.levels.Unlocks {
		if lv <= level {
			levels = append(levels, lv)
		}
	}
	sort.Ints(levels)

	var out []string
	for _, lv := range levels {
		out = append(out, l.levels.Unlocks[lv]...)
	}
	return out
}

// HasUnlocked reports whether feature is available at level.
func (l *Ledger) HasUnlocked(level int, feature string) bool {
	for _, f := range l.UnlockedFeatures(level) {
		if f == feature {
			return true
		}
	}
	return false
}
