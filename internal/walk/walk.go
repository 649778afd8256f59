// Package walk runs timed excursions. Events are rolled when a walk starts
// and paid out when it completes.
package walk

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// Event types. The first eight come from the event table; BonusLoot is the
// thief's extra find.
const (
	Nothing       = "NOTHING"
	FindMoney     = "FIND_MONEY"
	FindItem      = "FIND_ITEM"
	FindRare      = "FIND_RARE"
	FightRandom   = "FIGHT_RANDOM"
	PoliceCheck   = "POLICE_CHECK"
	Treasure      = "TREASURE"
	BossEncounter = "BOSS_ENCOUNTER"
	BonusLoot     = "BONUS_LOOT"
)

// Simulator starts walks, rolls their events and settles them.
type Simulator struct {
	cat    *catalog.Catalog
	cfg    *catalog.Walk
	ledger *leveling.Ledger
	loot   *loot.Table
	rng    dice.Source
}

// New creates a Simulator.
func New(cat *catalog.Catalog, ledger *leveling.Ledger, table *loot.Table, rng dice.Source) *Simulator {
	return &Simulator{cat: cat, cfg: cat.Walk(), ledger: ledger, loot: table, rng: rng}
}

// Start reserves energy and opens a walk of the given tier. The returned
// player copy carries the walking flag and the spent energy.
func (s *Simulator) Start(p *player.Player, tierID, channelID string, now time.Time) (*storage.Walk, *player.Player, error) {
	tier, ok := s.cat.WalkTier(tierID)
	if !ok {
		return nil, nil, gameerr.Input("unknown walk tier: " + tierID)
	}
	if p.IsDead {
		return nil, nil, gameerr.Dead()
	}
	if p.IsInFight {
		return nil, nil, gameerr.Conflict("fight")
	}
	if p.IsWalking {
		return nil, nil, gameerr.Conflict("walk")
	}
	if p.Energy < tier.EnergyCost {
		return nil, nil, gameerr.Insufficient(gameerr.ResourceEnergy, tier.EnergyCost, p.Energy)
	}

	duration := time.Duration(tier.Minutes) * time.Minute
	w := &storage.Walk{
		ID:        uuid.NewString(),
		PlayerID:  p.ID,
		Tier:      tier.ID,
		StartedAt: now,
		EndsAt:    now.Add(duration),
		Events:    s.GenerateEvents(p, tier),
		ChannelID: channelID,
	}

	next := p.Clone()
	next.Energy -= tier.EnergyCost
	next.IsWalking = true
	next.WalkEndsAt = w.EndsAt
	next.LastWalk = now
	return w, next, nil
}

// EventCount is the number of table events a walk of the tier produces.
func (s *Simulator) EventCount(tier *catalog.WalkTier) int {
	per := s.cfg.MinutesPerEvent
	if per <= 0 {
		per = 20
	}
	return max(1, tier.Minutes/per)
}

// GenerateEvents rolls the events of a walk against the player's state at
// the start. Loot-bearing weights scale with the class and tier loot chance.
func (s *Simulator) GenerateEvents(p *player.Player, tier *catalog.WalkTier) []storage.WalkEvent {
	bonuses := s.cat.Bonuses(p.Class)
	table := s.weights(1 + bonuses.LootChance + tier.LootChance)

	n := s.EventCount(tier)
	events := make([]storage.WalkEvent, 0, n+1)
	for i := 0; i < n; i++ {
		row, ok := dice.WeightedPick(table, s.rng)
		if !ok {
			events = append(events, storage.WalkEvent{Type: Nothing})
			continue
		}
		events = append(events, s.resolve(p, row))
	}

	if dice.Chance(s.rng, bonuses.LootChance) {
		events = append(events, storage.WalkEvent{Type: BonusLoot, Items: []string{s.loot.Random(catalog.Common)}})
	}
	return events
}

func (s *Simulator) weights(lootScale float64) []dice.Weighted[*catalog.WalkEvent] {
	table := make([]dice.Weighted[*catalog.WalkEvent], 0, len(s.cfg.Events))
	for i := range s.cfg.Events {
		row := &s.cfg.Events[i]
		w := row.Chance
		if row.LootBearing {
			w *= lootScale
		}
		table = append(table, dice.Weighted[*catalog.WalkEvent]{Value: row, Weight: w})
	}
	return table
}

// resolve fixes the payout of one rolled event.
func (s *Simulator) resolve(p *player.Player, row *catalog.WalkEvent) storage.WalkEvent {
	ev := storage.WalkEvent{Type: row.Type, XP: row.XP}

	switch row.Type {
	case FindMoney:
		ev.Money = dice.RangeInt(s.rng, row.Money.Min(), row.Money.Max())
	case FindItem, FindRare:
		ev.Items = []string{s.loot.Random(row.Rarity)}
	case Treasure:
		ev.Items = []string{s.loot.Random(row.Rarity)}
		ev.Money = dice.RangeInt(s.rng, row.Money.Min(), row.Money.Max())
	case FightRandom:
		s.autoFight(p, &ev)
	case PoliceCheck:
		police := s.cfg.Police
		switch {
		case p.RepCops >= police.FriendlyReputation:
		case p.RepCops <= police.HostileReputation:
			ev.XP = 0
			ev.Fined = true
		default:
			ev.XP = 0
		}
	case BossEncounter:
		if b, ok := dice.Pick(s.rng, s.cat.Bosses()); ok {
			ev.BossID = b.ID
		}
	}
	return ev
}

// autoFight settles a street fight without rounds: the win probability is
// the player's share of the combined power.
func (s *Simulator) autoFight(p *player.Player, ev *storage.WalkEvent) {
	enemy, ok := dice.Pick(s.rng, s.cat.Enemies())
	if !ok {
		ev.Type = Nothing
		return
	}
	ev.EnemyID = enemy.ID

	af := s.cfg.AutoFight
	pp := float64(p.Level*af.LevelPower) + float64(p.Health)/2
	ep := float64(enemy.Health + enemy.Damage*af.DamagePower)

	if dice.Chance(s.rng, WinProbability(pp, ep)) {
		ev.Won = true
		ev.XP = enemy.XP
		ev.Money = dice.RangeInt(s.rng, af.WinMoney.Min(), af.WinMoney.Max())
		if len(enemy.Loot) > 0 && dice.Chance(s.rng, af.LootChance) {
			ev.Items = []string{s.loot.One(enemy.Loot)}
		}
		return
	}
	ev.Damage = dice.RangeInt(s.rng, af.LossDamage.Min(), af.LossDamage.Max())
	ev.XP = af.LossXP
}

// WinProbability is pp / (pp + ep), 0 when both are zero.
func WinProbability(playerPower, enemyPower float64) float64 {
	if playerPower+enemyPower <= 0 {
		return 0
	}
	return playerPower / (playerPower + enemyPower)
}

// Summary is the settled payout of a completed walk.
type Summary struct {
	Walk     *storage.Walk
	Player   *player.Player
	Money    int
	Fine     int
	XP       int
	Damage   int
	Items    []string
	Progress leveling.Progress
}

// Complete pays out a finished walk to p, which must be the freshest
// snapshot of the walker. Grants apply even if the player died meanwhile;
// a dead player takes no walk damage.
func (s *Simulator) Complete(p *player.Player, w *storage.Walk, now time.Time) (Summary, error) {
	if w == nil {
		return Summary{}, gameerr.Expired("walk")
	}
	if w.PlayerID != p.ID {
		return Summary{}, gameerr.Invalid("walk belongs to another player")
	}
	if now.Before(w.EndsAt) {
		return Summary{}, gameerr.Cooldown(w.EndsAt.Sub(now))
	}

	sum := Summary{Walk: w, XP: s.cfg.BaseXP}
	for _, ev := range w.Events {
		sum.Money += ev.Money
		sum.XP += ev.XP
		sum.Damage += ev.Damage
		sum.Items = append(sum.Items, ev.Items...)
		if ev.Fined {
			sum.Fine += int(math.Floor(float64(p.Money) * float64(s.cfg.Police.FinePercent) / 100))
		}
	}

	me := p.Clone()
	me.Earn(sum.Money)
	sum.Fine = me.Spend(sum.Fine)
	me.RecordItemsFound(len(sum.Items))
	me.WalksCompleted++
	if !me.IsDead {
		me.Health = max(1, me.Health-sum.Damage)
	}
	me.IsWalking = false
	me.WalkEndsAt = time.Time{}

	sum.Progress = s.ledger.AddXP(me, sum.XP)
	sum.Items = append(sum.Items, sum.Progress.Items...)
	me.Clamp()
	sum.Player = me
	return sum, nil
}

// Abandon clears the walking flag of a player whose walk row is gone.
func Abandon(p *player.Player) *player.Player {
	next := p.Clone()
	next.IsWalking = false
	next.WalkEndsAt = time.Time{}
	return next
}
