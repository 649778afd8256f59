package catalog

// Rarity is an item rarity tier.
type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Epic      Rarity = "epic"
	Legendary Rarity = "legendary"
)

// Rarities lists all tiers from lowest to highest.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary}

// Rank returns the tier index (common=0 .. legendary=4), or -1 for unknown values.
func (r Rarity) Rank() int {
	for i, tier := range Rarities {
		if tier == r {
			return i
		}
	}
	return -1
}

// IsValid reports whether r is a known tier.
func (r Rarity) IsValid() bool {
	return r.Rank() >= 0
}

// Category groups items the way shops and inventories present them.
type Category string

const (
	Food        Category = "food"
	Drinks      Category = "drinks"
	Weapons     Category = "weapons"
	Armor       Category = "armor"
	Backpacks   Category = "backpacks"
	Special     Category = "special"
	Consumables Category = "consumables"
	BossLoot    Category = "boss_loot"
	Junk        Category = "junk"
)

// Item is an immutable item definition.
type Item struct {
	ID       string
	Name     string
	Emoji    string
	Category Category
	Rarity   Rarity

	// Need effects applied on use
	Hunger     int
	Thirst     int
	Health     int
	Energy     int
	Addiction  int
	Reputation int

	// Equipment stats
	Damage  int
	Defense int
	Slots   int

	Price     int
	SellPrice int    // Fixed pawn value for items without a shop price
	Use       string // Special use tag (heal, escape, revive...)
}

// IsUsable reports whether the item can be consumed for its need effects.
func (it *Item) IsUsable() bool {
	switch it.Category {
	case Food, Drinks, Consumables, Special:
		return it.Hunger != 0 || it.Thirst != 0 || it.Health != 0 || it.Energy != 0 || it.Addiction != 0
	}
	return false
}

// IsEquippable reports whether the item occupies an equipment slot.
func (it *Item) IsEquippable() bool {
	return it.Category == Weapons || it.Category == Armor || it.Category == Backpacks
}

// ClassBonuses holds the fractional bonuses a class grants.
type ClassBonuses struct {
	LootChance    float64 `yaml:"loot_chance"`
	StealthDamage float64 `yaml:"stealth_damage"`
	Pickpocket    float64 `yaml:"pickpocket"`
	SellPrice     float64 `yaml:"sell_price"`
	BuyDiscount   float64 `yaml:"buy_discount"`
	Charisma      float64 `yaml:"charisma"`
	EscapeChance  float64 `yaml:"escape_chance"`
	Manipulate    float64 `yaml:"manipulate"`
	TrapDamage    float64 `yaml:"trap_damage"`
	CritChance    float64 `yaml:"crit_chance"`
	PainResist    float64 `yaml:"pain_resist"`
	Berserker     float64 `yaml:"berserker"`
	MaxHealth     float64 `yaml:"max_health"`
	HealthRegen   float64 `yaml:"health_regen"`
	DrunkResist   float64 `yaml:"drunk_resist"`
}

// Class is a playable character class.
type Class struct {
	ID            string       `yaml:"id"`
	Name          string       `yaml:"name"`
	Emoji         string       `yaml:"emoji"`
	Description   string       `yaml:"description"`
	Bonuses       ClassBonuses `yaml:"bonuses"`
	StartingItems []string     `yaml:"starting_items"`
	Weakness      string       `yaml:"weakness"`
}

// Country is a home country a character is created in.
type Country struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Emoji        string   `yaml:"emoji"`
	Currency     string   `yaml:"currency"`
	Locale       string   `yaml:"locale"`
	SpecialItems []string `yaml:"special_items"`
}

// Enemy is a street opponent template.
type Enemy struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Health int      `yaml:"health"`
	Damage int      `yaml:"damage"`
	XP     int      `yaml:"xp"`
	Loot   []string `yaml:"loot"`
}

// Boss is a guild-scoped world boss template.
type Boss struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Emoji        string   `yaml:"emoji"`
	Description  string   `yaml:"description"`
	Level        int      `yaml:"level"`
	Health       int      `yaml:"health"`
	Damage       int      `yaml:"damage"`
	Defense      int      `yaml:"defense"`
	Abilities    []string `yaml:"abilities"`
	Loot         []string `yaml:"loot"`
	RespawnHours int      `yaml:"respawn_hours"`
}

// Shop is a buying or selling venue.
type Shop struct {
	ID                    string         `yaml:"id"`
	Name                  string         `yaml:"name"`
	Items                 []string       `yaml:"items"`
	PriceMultiplier       float64        `yaml:"price_multiplier"`
	SellMultiplier        float64        `yaml:"sell_multiplier"`
	PremiumMultiplier     float64        `yaml:"premium_multiplier"`
	DiscountPerReputation float64        `yaml:"discount_per_reputation"`
	LevelRequired         int            `yaml:"level_required"`
	ReputationRequired    map[string]int `yaml:"reputation_required"`
	AcceptedCategories    []Category     `yaml:"accepted_categories"`
	RefreshHours          int            `yaml:"refresh_hours"`
}

// Sells reports whether the shop stocks the item.
func (s *Shop) Sells(itemID string) bool {
	for _, id := range s.Items {
		if id == itemID {
			return true
		}
	}
	return false
}

// Buys reports whether the shop buys items from players.
func (s *Shop) Buys() bool {
	return s.SellMultiplier > 0
}

// Accepts reports whether the category is one the shop takes at premium rates.
func (s *Shop) Accepts(c Category) bool {
	for _, accepted := range s.AcceptedCategories {
		if accepted == c {
			return true
		}
	}
	return false
}

// LevelReward is granted when a level is reached.
type LevelReward struct {
	Title       string `yaml:"title"`
	Item        string `yaml:"item"`
	Money       int    `yaml:"money"`
	SkillPoints int    `yaml:"skill_points"`
}

// Levels holds the experience curve.
type Levels struct {
	MaxLevel   int                 `yaml:"max_level"`
	BaseXP     int                 `yaml:"base_xp"`
	Multiplier float64             `yaml:"multiplier"`
	Rewards    map[int]LevelReward `yaml:"rewards"`
	Unlocks    map[int][]string    `yaml:"unlocks"`
}

// NeedRule describes how one need changes over time.
type NeedRule struct {
	Max                      int     `yaml:"max"`
	DecayPerHour             float64 `yaml:"decay_per_hour"`
	RegenPerHour             float64 `yaml:"regen_per_hour"`
	CriticalThreshold        int     `yaml:"critical_threshold"`
	HealthDamageWhenCritical float64 `yaml:"health_damage_when_critical"`
	WithdrawalThreshold      int     `yaml:"withdrawal_threshold"`
	DeathPenalty             float64 `yaml:"death_penalty"`
}

// Stats holds the need rules.
type Stats struct {
	Health              NeedRule `yaml:"health"`
	Hunger              NeedRule `yaml:"hunger"`
	Thirst              NeedRule `yaml:"thirst"`
	Addiction           NeedRule `yaml:"addiction"`
	Energy              NeedRule `yaml:"energy"`
	RegenMinNourishment int      `yaml:"regen_min_nourishment"`
}

// ReputationTier is one named band of a faction's standing.
type ReputationTier struct {
	Threshold int    `yaml:"threshold"`
	Title     string `yaml:"title"`
	Effect    string `yaml:"effect"`
}

// Faction is a reputation track.
type Faction struct {
	ID      string           `yaml:"id"`
	Name    string           `yaml:"name"`
	Emoji   string           `yaml:"emoji"`
	Tiers   []ReputationTier `yaml:"tiers"`
	Actions map[string]int   `yaml:"actions"`
}

// Trait is a personality label reached once its axis crosses Threshold.
type Trait struct {
	ID          string `yaml:"id"`
	Axis        string `yaml:"axis"`
	Threshold   int    `yaml:"threshold"`
	Description string `yaml:"description"`
}

// Personality holds traits and the axis deltas of each action.
type Personality struct {
	Traits  []Trait                   `yaml:"traits"`
	Actions map[string]map[string]int `yaml:"actions"`
}

// IntRange is an inclusive [min, max] pair written as a two-element YAML list.
type IntRange [2]int

// Min returns the lower bound.
func (r IntRange) Min() int { return r[0] }

// Max returns the upper bound.
func (r IntRange) Max() int { return r[1] }

// Fight holds combat tuning.
type Fight struct {
	TTLMinutes              int            `yaml:"ttl_minutes"`
	UnarmedDamage           int            `yaml:"unarmed_damage"`
	NPCDefaultDamage        int            `yaml:"npc_default_damage"`
	DefenseFactor           float64        `yaml:"defense_factor"`
	VarianceMin             float64        `yaml:"variance_min"`
	VarianceSpread          float64        `yaml:"variance_spread"`
	PlayerCritChance        float64        `yaml:"player_crit_chance"`
	NPCCritChance           float64        `yaml:"npc_crit_chance"`
	CritMultiplier          float64        `yaml:"crit_multiplier"`
	BerserkerHealthFraction float64        `yaml:"berserker_health_fraction"`
	StealthFactor           float64        `yaml:"stealth_factor"`
	FleeBaseChance          float64        `yaml:"flee_base_chance"`
	LootDropChance          float64        `yaml:"loot_drop_chance"`
	RewardMoney             IntRange       `yaml:"reward_money"`
	LossMoneyFraction       float64        `yaml:"loss_money_fraction"`
	ReputationOnWin         map[string]int `yaml:"reputation_on_win"`
	BossXPPerLevel          int            `yaml:"boss_xp_per_level"`
	BossMoneyPerLevel       int            `yaml:"boss_money_per_level"`
}

// WalkTier is a walk duration class.
type WalkTier struct {
	ID         string  `yaml:"id"`
	Minutes    int     `yaml:"minutes"`
	EnergyCost int     `yaml:"energy_cost"`
	LootChance float64 `yaml:"loot_chance"`
}

// WalkEvent is one row of the walk event table.
type WalkEvent struct {
	Type        string   `yaml:"type"`
	Chance      float64  `yaml:"chance"`
	Money       IntRange `yaml:"money"`
	Rarity      Rarity   `yaml:"rarity"`
	XP          int      `yaml:"xp"`
	LootBearing bool     `yaml:"loot_bearing"`
}

// AutoFight tunes the simplified fights resolved during walks.
type AutoFight struct {
	LevelPower  int      `yaml:"level_power"`
	DamagePower int      `yaml:"damage_power"`
	WinMoney    IntRange `yaml:"win_money"`
	LootChance  float64  `yaml:"loot_chance"`
	LossDamage  IntRange `yaml:"loss_damage"`
	LossXP      int      `yaml:"loss_xp"`
}

// Police tunes document checks during walks.
type Police struct {
	FriendlyReputation int `yaml:"friendly_reputation"`
	HostileReputation  int `yaml:"hostile_reputation"`
	FinePercent        int `yaml:"fine_percent"`
}

// Walk holds the walk tables.
type Walk struct {
	BaseXP          int         `yaml:"base_xp"`
	MinutesPerEvent int         `yaml:"minutes_per_event"`
	Tiers           []WalkTier  `yaml:"tiers"`
	Events          []WalkEvent `yaml:"events"`
	AutoFight       AutoFight   `yaml:"auto_fight"`
	Police          Police      `yaml:"police"`
}

// Chest is a daily chest tier.
type Chest struct {
	Rarity Rarity   `yaml:"rarity"`
	Chance float64  `yaml:"chance"`
	Items  int      `yaml:"items"`
	Money  IntRange `yaml:"money"`
}

// StreakBonus applies once a daily streak reaches Days.
type StreakBonus struct {
	Days          int     `yaml:"days"`
	Multiplier    float64 `yaml:"multiplier"`
	BonusItem     bool    `yaml:"bonus_item"`
	RareGuarantee bool    `yaml:"rare_guarantee"`
}

// Daily holds the daily chest tables.
type Daily struct {
	CooldownHours    int           `yaml:"cooldown_hours"`
	StreakResetHours int           `yaml:"streak_reset_hours"`
	Chests           []Chest       `yaml:"chests"`
	Streaks          []StreakBonus `yaml:"streaks"`
}
