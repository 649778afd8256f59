// Package balance runs Monte Carlo simulations over the live game rules:
// street fights against every enemy, walk payouts per tier and the XP curve.
package balance

import (
	"fmt"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/combat"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/walk"
)

// maxRounds stops a fight that cannot end, such as zero damage on both sides.
const maxRounds = 1000

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Profile describes the simulated character.
type Profile struct {
	Class   string
	Country string
	Level   int
	Weapon  string // empty keeps the default
	Armor   string
}

// Simulator runs the game components without storage.
type Simulator struct {
	cat      *catalog.Catalog
	ledger   *leveling.Ledger
	sessions *combat.Sessions
	walks    *walk.Simulator
}

// New creates a Simulator drawing from rng.
func New(cat *catalog.Catalog, rng dice.Source) *Simulator {
	ledger := leveling.New(cat.Levels())
	table := loot.New(cat, rng)
	resolver := combat.NewResolver(cat, rng)
	return &Simulator{
		cat:      cat,
		ledger:   ledger,
		sessions: combat.NewSessions(cat, resolver, ledger, table, rng, time.Hour),
		walks:    walk.New(cat, ledger, table, rng),
	}
}

// NewPlayer builds a fresh character for prof.
func (s *Simulator) NewPlayer(prof Profile) (*player.Player, error) {
	class, ok := s.cat.Class(prof.Class)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", prof.Class)
	}
	country, ok := s.cat.Country(prof.Country)
	if !ok {
		return nil, fmt.Errorf("unknown country %q", prof.Country)
	}

	p := player.New("sim", "sim", country, class, epoch)
	if prof.Level > 1 {
		p.Level = min(prof.Level, s.ledger.MaxLevel())
	}
	if prof.Weapon != "" {
		if _, ok := s.cat.WeaponDamage(prof.Weapon); !ok {
			return nil, fmt.Errorf("unknown weapon %q", prof.Weapon)
		}
		p.EquippedWeapon = prof.Weapon
	}
	if prof.Armor != "" {
		if _, ok := s.cat.Item(prof.Armor); !ok {
			return nil, fmt.Errorf("unknown armor %q", prof.Armor)
		}
		p.EquippedArmor = prof.Armor
	}
	return p, nil
}

// FightResult aggregates many fights against one enemy.
type FightResult struct {
	Enemy        string
	Simulations  int
	Wins         int
	Losses       int
	Stalemates   int
	WinRate      float64
	AvgRounds    float64
	AvgHPLeft    float64 // over wins only
	AvgMoney     float64 // money won per fight
	AvgMoneyLost float64
	MinRounds    int
	MaxRounds    int
}

// SimulateFights fights enemyID iterations times, each with a fresh player,
// attacking until the fight ends.
func (s *Simulator) SimulateFights(prof Profile, enemyID string, iterations int) (FightResult, error) {
	res := FightResult{Enemy: enemyID, MinRounds: maxRounds + 1}
	if _, ok := s.cat.Enemy(enemyID); !ok {
		return res, fmt.Errorf("unknown enemy %q", enemyID)
	}

	var rounds, hpLeft, money, lost int
	for i := 0; i < iterations; i++ {
		p, err := s.NewPlayer(prof)
		if err != nil {
			return res, err
		}
		f, p, err := s.sessions.Start(p, enemyID, "", epoch)
		if err != nil {
			return res, err
		}

		n := 0
		state := storage.FightActive
		for n < maxRounds {
			n++
			out, err := s.sessions.Attack(p, nil, f, epoch)
			if err != nil {
				return res, err
			}
			f, p, state = out.Fight, out.Player, out.State
			if out.Rewards != nil {
				money += out.Rewards.Money
			}
			lost += out.MoneyLost
			if out.Ended() {
				break
			}
		}

		switch state {
		case storage.FightVictory:
			res.Wins++
			hpLeft += p.Health
		case storage.FightDefeat:
			res.Losses++
		default:
			res.Stalemates++
		}
		rounds += n
		res.MinRounds = min(res.MinRounds, n)
		res.MaxRounds = max(res.MaxRounds, n)
	}

	res.Simulations = iterations
	if iterations > 0 {
		res.WinRate = float64(res.Wins) / float64(iterations)
		res.AvgRounds = float64(rounds) / float64(iterations)
		res.AvgMoney = float64(money) / float64(iterations)
		res.AvgMoneyLost = float64(lost) / float64(iterations)
	} else {
		res.MinRounds = 0
	}
	if res.Wins > 0 {
		res.AvgHPLeft = float64(hpLeft) / float64(res.Wins)
	}
	return res, nil
}

// SimulateAllEnemies runs SimulateFights against every catalog enemy.
func (s *Simulator) SimulateAllEnemies(prof Profile, iterations int) ([]FightResult, error) {
	var out []FightResult
	for _, e := range s.cat.Enemies() {
		r, err := s.SimulateFights(prof, e.ID, iterations)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
