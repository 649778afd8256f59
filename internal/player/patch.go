package player

import "time"

// Patch is a typed partial update of a Player. A nil field is left untouched.
type Patch struct {
	Level       *int
	XP          *int
	SkillPoints *int
	Title       *string

	Health    *int
	MaxHealth *int
	Hunger    *int
	Thirst    *int
	Energy    *int
	Addiction *int

	Money *int
	Bank  *int

	RepCops    *int
	RepBandits *int
	RepStreet  *int

	TraitAggressive *int
	TraitGreedy     *int
	TraitLoyal      *int
	TraitAddict     *int

	EquippedWeapon   *string
	EquippedArmor    *string
	EquippedBackpack *string

	WeaponDura   *int
	ArmorDura    *int
	BackpackDura *int

	TotalFights      *int
	FightsWon        *int
	FightsLost       *int
	BossesKilled     *int
	TotalMoneyEarned *int
	TotalItemsFound  *int
	WalksCompleted   *int
	PlayersKilled    *int
	Deaths           *int

	DailyStreak *int

	LastDaily      *time.Time
	LastWalk       *time.Time
	LastFight      *time.Time
	LastStatUpdate *time.Time
	WalkEndsAt     *time.Time

	IsDead    *bool
	IsInFight *bool
	IsWalking *bool
}

// Column is one set field of a Patch, keyed by its storage column name.
type Column struct {
	Name  string
	Value any
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

// Columns lists the set fields in a stable order with their column names.
func (pt *Patch) Columns() []Column {
	var cols []Column
	cols = col(cols, "level", pt.Level)
	cols = col(cols, "xp", pt.XP)
	cols = col(cols, "skill_points", pt.SkillPoints)
	cols = col(cols, "title", pt.Title)
	cols = col(cols, "health", pt.Health)
	cols = col(cols, "max_health", pt.MaxHealth)
	cols = col(cols, "hunger", pt.Hunger)
	cols = col(cols, "thirst", pt.Thirst)
	cols = col(cols, "energy", pt.Energy)
	cols = col(cols, "addiction", pt.Addiction)
	cols = col(cols, "money", pt.Money)
	cols = col(cols, "bank", pt.Bank)
	cols = col(cols, "rep_cops", pt.RepCops)
	cols = col(cols, "rep_bandits", pt.RepBandits)
	cols = col(cols, "rep_street", pt.RepStreet)
	cols = col(cols, "trait_aggressive", pt.TraitAggressive)
	cols = col(cols, "trait_greedy", pt.TraitGreedy)
	cols = col(cols, "trait_loyal", pt.TraitLoyal)
	cols = col(cols, "trait_addict", pt.TraitAddict)
	cols = col(cols, "equipped_weapon", pt.EquippedWeapon)
	cols = col(cols, "equipped_armor", pt.EquippedArmor)
	cols = col(cols, "equipped_backpack", pt.EquippedBackpack)
	cols = col(cols, "weapon_durability", pt.WeaponDura)
	cols = col(cols, "armor_durability", pt.ArmorDura)
	cols = col(cols, "backpack_durability", pt.BackpackDura)
	cols = col(cols, "total_fights", pt.TotalFights)
	cols = col(cols, "fights_won", pt.FightsWon)
	cols = col(cols, "fights_lost", pt.FightsLost)
	cols = col(cols, "bosses_killed", pt.BossesKilled)
	cols = col(cols, "total_money_earned", pt.TotalMoneyEarned)
	cols = col(cols, "total_items_found", pt.TotalItemsFound)
	cols = col(cols, "walks_completed", pt.WalksCompleted)
	cols = col(cols, "players_killed", pt.PlayersKilled)
	cols = col(cols, "deaths", pt.Deaths)
	cols = col(cols, "daily_streak", pt.DailyStreak)
	cols = timeCol(cols, "last_daily", pt.LastDaily)
	cols = timeCol(cols, "last_walk", pt.LastWalk)
	cols = timeCol(cols, "last_fight", pt.LastFight)
	cols = timeCol(cols, "last_stat_update", pt.LastStatUpdate)
	cols = timeCol(cols, "walk_ends_at", pt.WalkEndsAt)
	cols = col(cols, "is_dead", pt.IsDead)
	cols = col(cols, "is_in_fight", pt.IsInFight)
	cols = col(cols, "is_walking", pt.IsWalking)
	return cols
}

// IsEmpty reports whether the patch changes nothing.
func (pt *Patch) IsEmpty() bool {
	return len(pt.Columns()) == 0
}

// Apply writes the set fields onto p.
func (pt *Patch) Apply(p *Player) {
	set(&p.Level, pt.Level)
	set(&p.XP, pt.XP)
	set(&p.SkillPoints, pt.SkillPoints)
	set(&p.Title, pt.Title)
	set(&p.Health, pt.Health)
	set(&p.MaxHealth, pt.MaxHealth)
	set(&p.Hunger, pt.Hunger)
	set(&p.Thirst, pt.Thirst)
	set(&p.Energy, pt.Energy)
	set(&p.Addiction, pt.Addiction)
	set(&p.Money, pt.Money)
	set(&p.Bank, pt.Bank)
	set(&p.RepCops, pt.RepCops)
	set(&p.RepBandits, pt.RepBandits)
	set(&p.RepStreet, pt.RepStreet)
	set(&p.TraitAggressive, pt.TraitAggressive)
	set(&p.TraitGreedy, pt.TraitGreedy)
	set(&p.TraitLoyal, pt.TraitLoyal)
	set(&p.TraitAddict, pt.TraitAddict)
	set(&p.EquippedWeapon, pt.EquippedWeapon)
	set(&p.EquippedArmor, pt.EquippedArmor)
	set(&p.EquippedBackpack, pt.EquippedBackpack)
	set(&p.WeaponDura, pt.WeaponDura)
	set(&p.ArmorDura, pt.ArmorDura)
	set(&p.BackpackDura, pt.BackpackDura)
	set(&p.TotalFights, pt.TotalFights)
	set(&p.FightsWon, pt.FightsWon)
	set(&p.FightsLost, pt.FightsLost)
	set(&p.BossesKilled, pt.BossesKilled)
	set(&p.TotalMoneyEarned, pt.TotalMoneyEarned)
	set(&p.TotalItemsFound, pt.TotalItemsFound)
	set(&p.WalksCompleted, pt.WalksCompleted)
	set(&p.PlayersKilled, pt.PlayersKilled)
	set(&p.Deaths, pt.Deaths)
	set(&p.DailyStreak, pt.DailyStreak)
	set(&p.LastDaily, pt.LastDaily)
	set(&p.LastWalk, pt.LastWalk)
	set(&p.LastFight, pt.LastFight)
	set(&p.LastStatUpdate, pt.LastStatUpdate)
	set(&p.WalkEndsAt, pt.WalkEndsAt)
	set(&p.IsDead, pt.IsDead)
	set(&p.IsInFight, pt.IsInFight)
	set(&p.IsWalking, pt.IsWalking)
}

// Merge folds a later patch over pt; fields set in later win.
func (pt *Patch) Merge(later Patch) {
	over(&pt.Level, later.Level)
	over(&pt.XP, later.XP)
	over(&pt.SkillPoints, later.SkillPoints)
	over(&pt.Title, later.Title)
	over(&pt.Health, later.Health)
	over(&pt.MaxHealth, later.MaxHealth)
	over(&pt.Hunger, later.Hunger)
	over(&pt.Thirst, later.Thirst)
	over(&pt.Energy, later.Energy)
	over(&pt.Addiction, later.Addiction)
	over(&pt.Money, later.Money)
	over(&pt.Bank, later.Bank)
	over(&pt.RepCops, later.RepCops)
	over(&pt.RepBandits, later.RepBandits)
	over(&pt.RepStreet, later.RepStreet)
	over(&pt.TraitAggressive, later.TraitAggressive)
	over(&pt.TraitGreedy, later.TraitGreedy)
	over(&pt.TraitLoyal, later.TraitLoyal)
	over(&pt.TraitAddict, later.TraitAddict)
	over(&pt.EquippedWeapon, later.EquippedWeapon)
	over(&pt.EquippedArmor, later.EquippedArmor)
	over(&pt.EquippedBackpack, later.EquippedBackpack)
	over(&pt.WeaponDura, later.WeaponDura)
	over(&pt.ArmorDura, later.ArmorDura)
	over(&pt.BackpackDura, later.BackpackDura)
	over(&pt.TotalFights, later.TotalFights)
	over(&pt.FightsWon, later.FightsWon)
	over(&pt.FightsLost, later.FightsLost)
	over(&pt.BossesKilled, later.BossesKilled)
	over(&pt.TotalMoneyEarned, later.TotalMoneyEarned)
	over(&pt.TotalItemsFound, later.TotalItemsFound)
	over(&pt.WalksCompleted, later.WalksCompleted)
	over(&pt.PlayersKilled, later.PlayersKilled)
	over(&pt.Deaths, later.Deaths)
	over(&pt.DailyStreak, later.DailyStreak)
	over(&pt.LastDaily, later.LastDaily)
	over(&pt.LastWalk, later.LastWalk)
	over(&pt.LastFight, later.LastFight)
	over(&pt.LastStatUpdate, later.LastStatUpdate)
	over(&pt.WalkEndsAt, later.WalkEndsAt)
	over(&pt.IsDead, later.IsDead)
	over(&pt.IsInFight, later.IsInFight)
	over(&pt.IsWalking, later.IsWalking)
}

// Diff returns the patch that turns before into after. Components mutate a
// Clone and hand the difference back, so only changed columns are written.
func Diff(before, after *Player) Patch {
	var pt Patch
	pt.Level = diff(before.Level, after.Level)
	pt.XP = diff(before.XP, after.XP)
	pt.SkillPoints = diff(before.SkillPoints, after.SkillPoints)
	pt.Title = diff(before.Title, after.Title)
	pt.Health = diff(before.Health, after.Health)
	pt.MaxHealth = diff(before.MaxHealth, after.MaxHealth)
	pt.Hunger = diff(before.Hunger, after.Hunger)
	pt.Thirst = diff(before.Thirst, after.Thirst)
	pt.Energy = diff(before.Energy, after.Energy)
	pt.Addiction = diff(before.Addiction, after.Addiction)
	pt.Money = diff(before.Money, after.Money)
	pt.Bank = diff(before.Bank, after.Bank)
	pt.RepCops = diff(before.RepCops, after.RepCops)
	pt.RepBandits = diff(before.RepBandits, after.RepBandits)
	pt.RepStreet = diff(before.RepStreet, after.RepStreet)
	pt.TraitAggressive = diff(before.TraitAggressive, after.TraitAggressive)
	pt.TraitGreedy = diff(before.TraitGreedy, after.TraitGreedy)
	pt.TraitLoyal = diff(before.TraitLoyal, after.TraitLoyal)
	pt.TraitAddict = diff(before.TraitAddict, after.TraitAddict)
	pt.EquippedWeapon = diff(before.EquippedWeapon, after.EquippedWeapon)
	pt.EquippedArmor = diff(before.EquippedArmor, after.EquippedArmor)
	pt.EquippedBackpack = diff(before.EquippedBackpack, after.EquippedBackpack)
	pt.WeaponDura = diff(before.WeaponDura, after.WeaponDura)
	pt.ArmorDura = diff(before.ArmorDura, after.ArmorDura)
	pt.BackpackDura = diff(before.BackpackDura, after.BackpackDura)
	pt.TotalFights = diff(before.TotalFights, after.TotalFights)
	pt.FightsWon = diff(before.FightsWon, after.FightsWon)
	pt.FightsLost = diff(before.FightsLost, after.FightsLost)
	pt.BossesKilled = diff(before.BossesKilled, after.BossesKilled)
	pt.TotalMoneyEarned = diff(before.TotalMoneyEarned, after.TotalMoneyEarned)
	pt.TotalItemsFound = diff(before.TotalItemsFound, after.TotalItemsFound)
	pt.WalksCompleted = diff(before.WalksCompleted, after.WalksCompleted)
	pt.PlayersKilled = diff(before.PlayersKilled, after.PlayersKilled)
	pt.Deaths = diff(before.Deaths, after.Deaths)
	pt.DailyStreak = diff(before.DailyStreak, after.DailyStreak)
	pt.LastDaily = diffTime(before.LastDaily, after.LastDaily)
	pt.LastWalk = diffTime(before.LastWalk, after.LastWalk)
	pt.LastFight = diffTime(before.LastFight, after.LastFight)
	pt.LastStatUpdate = diffTime(before.LastStatUpdate, after.LastStatUpdate)
	pt.WalkEndsAt = diffTime(before.WalkEndsAt, after.WalkEndsAt)
	pt.IsDead = diff(before.IsDead, after.IsDead)
	pt.IsInFight = diff(before.IsInFight, after.IsInFight)
	pt.IsWalking = diff(before.IsWalking, after.IsWalking)
	return pt
}

func col[T any](cols []Column, name string, v *T) []Column {
	if v == nil {
		return cols
	}
	return append(cols, Column{Name: name, Value: *v})
}

// timeCol stores the zero time as NULL.
func timeCol(cols []Column, name string, v *time.Time) []Column {
	if v == nil {
		return cols
	}
	if v.IsZero() {
		return append(cols, Column{Name: name, Value: nil})
	}
	return append(cols, Column{Name: name, Value: v.UTC()})
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func over[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func diff[T comparable](a, b T) *T {
	if a == b {
		return nil
	}
	return &b
}

func diffTime(a, b time.Time) *time.Time {
	if a.Equal(b) {
		return nil
	}
	return &b
}
