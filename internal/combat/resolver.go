// Package combat resolves attacks and runs turn-based fight sessions.
package combat

import (
	"math"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// Combatant is one side of an attack.
type Combatant struct {
	Name       string
	BaseDamage int
	Defense    int
	Health     int
	MaxHealth  int
	Bonuses    catalog.ClassBonuses
}

// Hit is the result of one attack.
type Hit struct {
	Damage  int
	Crit    bool
	Blocked int
}

// Resolver computes attack damage.
type Resolver struct {
	cat *catalog.Catalog
	cfg *catalog.Fight
	rng dice.Source
}

// NewResolver creates a Resolver using the catalog's fight tuning.
func NewResolver(cat *catalog.Catalog, rng dice.Source) *Resolver {
	return &Resolver{cat: cat, cfg: cat.Fight(), rng: rng}
}

// FromPlayer builds a combatant from a player with hp as the current pool.
func (r *Resolver) FromPlayer(p *player.Player, hp int) Combatant {
	dmg, ok := r.cat.WeaponDamage(p.EquippedWeapon)
	if !ok {
		dmg = r.cfg.UnarmedDamage
	}
	return Combatant{
		Name:       p.Name,
		BaseDamage: dmg,
		Defense:    r.cat.ArmorDefense(p.EquippedArmor),
		Health:     hp,
		MaxHealth:  p.MaxHealth,
		Bonuses:    r.cat.Bonuses(p.Class),
	}
}

// FromEnemy builds a combatant from a street enemy with hp as the current pool.
func (r *Resolver) FromEnemy(e *catalog.Enemy, hp int) Combatant {
	dmg := e.Damage
	if dmg <= 0 {
		dmg = r.cfg.NPCDefaultDamage
	}
	return Combatant{Name: e.Name, BaseDamage: dmg, Health: hp, MaxHealth: e.Health}
}

// FromBoss builds a combatant from a boss template.
func (r *Resolver) FromBoss(b *catalog.Boss, hp int) Combatant {
	dmg := b.Damage
	if dmg <= 0 {
		dmg = r.cfg.NPCDefaultDamage
	}
	return Combatant{Name: b.Name, BaseDamage: dmg, Defense: b.Defense, Health: hp, MaxHealth: b.Health}
}

// ResolveAttack computes the damage attacker deals to defender.
//
// Order of operations: class bonuses, defense subtraction, variance, crit,
// floor, minimum 1. Class bonuses only apply to player attackers.
func (r *Resolver) ResolveAttack(attacker, defender Combatant, attackerIsPlayer bool) Hit {
	base := float64(attacker.BaseDamage)

	if attackerIsPlayer {
		b := attacker.Bonuses
		if b.Berserker > 0 && float64(attacker.Health) < float64(attacker.MaxHealth)*r.cfg.BerserkerHealthFraction {
			base *= 1 + b.Berserker
		}
		if b.StealthDamage > 0 {
			base *= 1 + b.StealthDamage*r.cfg.StealthFactor
		}
	}

	defense := float64(defender.Defense)
	variance := r.cfg.VarianceMin + r.rng.Float64()*r.cfg.VarianceSpread
	final := math.Floor((base - defense*r.cfg.DefenseFactor) * variance)

	critChance := r.cfg.NPCCritChance
	if attackerIsPlayer {
		critChance = r.cfg.PlayerCritChance
	}
	crit := dice.Chance(r.rng, critChance)
	if crit {
		final = math.Floor(final * r.cfg.CritMultiplier)
	}

	damage := int(final)
	if damage < 1 {
		damage = 1
	}
	return Hit{
		Damage:  damage,
		Crit:    crit,
		Blocked: int(math.Floor(defense * r.cfg.DefenseFactor)),
	}
}

// BossCounterHit is the damage a boss deals back: its damage reduced by the
// player's armor defense as a percentage.
func BossCounterHit(b *catalog.Boss, armorDefense int) int {
	dmg := math.Floor(float64(b.Damage) * (1 - float64(armorDefense)/100))
	if dmg < 0 {
		return 0
	}
	return int(dmg)
}
