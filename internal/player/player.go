// Package player holds the persistent character aggregate and the typed
// partial updates applied to it.
package player

import (
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
)

// Default equipment every character owns and never loses.
const (
	DefaultWeapon   = "fists"
	DefaultArmor    = "rags"
	DefaultBackpack = "plastic_bag"
)

// Need bounds.
const (
	NeedMax      = 100
	BaseHealth   = 100
	TraitLimit   = 100
	StartMoney   = 100
	StartLevel   = 1
	StartingDura = 100
)

// Faction ids with a reputation column.
const (
	FactionCops    = "cops"
	FactionBandits = "bandits"
	FactionStreet  = "street"
)

// Trait axes with an accumulator column.
const (
	AxisAggressive = "aggressive"
	AxisGreedy     = "greedy"
	AxisLoyal      = "loyal"
	AxisAddict     = "addict"
)

// Player is a persistent character. ID is the chat-platform user id.
type Player struct {
	ID          string
	Name        string
	Country     string
	Class       string
	Level       int
	XP          int
	SkillPoints int
	Title       string

	// Needs
	Health    int
	MaxHealth int
	Hunger    int
	Thirst    int
	Energy    int
	Addiction int

	Money int
	Bank  int

	RepCops    int
	RepBandits int
	RepStreet  int

	TraitAggressive int
	TraitGreedy     int
	TraitLoyal      int
	TraitAddict     int

	EquippedWeapon   string
	EquippedArmor    string
	EquippedBackpack string

	// Durability of the equipped pieces, kept so unequipping restores the
	// stack they came from.
	WeaponDura   int
	ArmorDura    int
	BackpackDura int

	Statistics

	DailyStreak int

	LastDaily      time.Time
	LastWalk       time.Time
	LastFight      time.Time
	LastStatUpdate time.Time
	WalkEndsAt     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	IsDead    bool
	IsInFight bool
	IsWalking bool
}

// New creates a level 1 character with full needs and default equipment.
// The class max health bonus raises both max and current health.
func New(id, name string, country *catalog.Country, class *catalog.Class, now time.Time) *Player {
	maxHealth := BaseHealth
	if class != nil && class.Bonuses.MaxHealth > 0 {
		maxHealth = int(float64(BaseHealth) * (1 + class.Bonuses.MaxHealth))
	}

	p := &Player{
		ID:               id,
		Name:             name,
		Level:            StartLevel,
		Health:           maxHealth,
		MaxHealth:        maxHealth,
		Hunger:           NeedMax,
		Thirst:           NeedMax,
		Energy:           NeedMax,
		Money:            StartMoney,
		EquippedWeapon:   DefaultWeapon,
		EquippedArmor:    DefaultArmor,
		EquippedBackpack: DefaultBackpack,
		WeaponDura:       StartingDura,
		ArmorDura:        StartingDura,
		BackpackDura:     StartingDura,
		LastStatUpdate:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if country != nil {
		p.Country = country.ID
	}
	if class != nil {
		p.Class = class.ID
	}
	return p
}

// Clone returns a copy that can be mutated without touching p.
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// IsDefaultEquipment reports whether an item is one of the default pieces,
// which are never moved back into the inventory.
func IsDefaultEquipment(itemID string) bool {
	return itemID == DefaultWeapon || itemID == DefaultArmor || itemID == DefaultBackpack
}

// Busy reports whether the player has an active fight or walk.
func (p *Player) Busy() bool {
	return p.IsInFight || p.IsWalking
}

// Clamp forces every bounded attribute back into range.
func (p *Player) Clamp() {
	if p.MaxHealth <= 0 {
		p.MaxHealth = BaseHealth
	}
	p.Health = clamp(p.Health, 0, p.MaxHealth)
	p.Hunger = clamp(p.Hunger, 0, NeedMax)
	p.Thirst = clamp(p.Thirst, 0, NeedMax)
	p.Energy = clamp(p.Energy, 0, NeedMax)
	p.Addiction = clamp(p.Addiction, 0, NeedMax)
	if p.Money < 0 {
		p.Money = 0
	}
	p.TraitAggressive = clamp(p.TraitAggressive, -TraitLimit, TraitLimit)
	p.TraitGreedy = clamp(p.TraitGreedy, -TraitLimit, TraitLimit)
	p.TraitLoyal = clamp(p.TraitLoyal, -TraitLimit, TraitLimit)
	p.TraitAddict = clamp(p.TraitAddict, -TraitLimit, TraitLimit)
}

// Reputation returns the standing with a faction, 0 for unknown factions.
func (p *Player) Reputation(faction string) int {
	if r := p.reputation(faction); r != nil {
		return *r
	}
	return 0
}

// AddReputation shifts the standing with a faction. Unknown factions are ignored.
func (p *Player) AddReputation(faction string, delta int) {
	if r := p.reputation(faction); r != nil {
		*r += delta
	}
}

func (p *Player) reputation(faction string) *int {
	switch faction {
	case FactionCops:
		return &p.RepCops
	case FactionBandits:
		return &p.RepBandits
	case FactionStreet:
		return &p.RepStreet
	}
	return nil
}

// Spend removes money, never below zero, and returns what was actually taken.
func (p *Player) Spend(amount int) int {
	if amount <= 0 {
		return 0
	}
	if amount > p.Money {
		amount = p.Money
	}
	p.Money -= amount
	return amount
}

// Earn adds money and counts it towards lifetime earnings.
func (p *Player) Earn(amount int) {
	if amount <= 0 {
		return
	}
	p.Money += amount
	p.TotalMoneyEarned += amount
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
