// Package catalog holds the immutable game definitions: items, classes,
// countries, enemies, bosses, shops, curves and activity tables.
//
// A Catalog is built once at startup and only read afterwards, so it is safe
// for concurrent use without locking.
package catalog

import (
	"sort"
)

// Catalog is the indexed, read-only definition set.
type Catalog struct {
	items      map[string]*Item
	itemIDs    []string // sorted, for deterministic random picks
	byCategory map[Category][]*Item
	byRarity   map[Rarity][]*Item

	classes    map[string]*Class
	classIDs   []string
	countries  map[string]*Country
	countryIDs []string
	enemies    []*Enemy
	enemyByID  map[string]*Enemy
	bosses     []*Boss
	bossByID   map[string]*Boss
	shops      map[string]*Shop
	factions   map[string]*Faction

	levels      Levels
	stats       Stats
	personality Personality
	fight       Fight
	walk        Walk
	walkTiers   map[string]*WalkTier
	daily       Daily

	defaultBackpackSlots int
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// ItemIDs returns every item id in sorted order.
func (c *Catalog) ItemIDs() []string {
	return append([]string(nil), c.itemIDs...)
}

// ItemsByCategory returns the items of a category sorted by id.
func (c *Catalog) ItemsByCategory(cat Category) []*Item {
	return c.byCategory[cat]
}

// ItemsByRarity returns the items of a rarity sorted by id.
func (c *Catalog) ItemsByRarity(r Rarity) []*Item {
	return c.byRarity[r]
}

// Class returns a class by id.
func (c *Catalog) Class(id string) (*Class, bool) {
	cl, ok := c.classes[id]
	return cl, ok
}

// ClassIDs returns all class ids in declaration order.
func (c *Catalog) ClassIDs() []string {
	return append([]string(nil), c.classIDs...)
}

// Bonuses returns the bonuses of a class, or zero bonuses for unknown ids.
func (c *Catalog) Bonuses(classID string) ClassBonuses {
	if cl, ok := c.classes[classID]; ok {
		return cl.Bonuses
	}
	return ClassBonuses{}
}

// Country returns a country by id.
func (c *Catalog) Country(id string) (*Country, bool) {
	co, ok := c.countries[id]
	return co, ok
}

// CountryIDs returns all country ids in declaration order.
func (c *Catalog) CountryIDs() []string {
	return append([]string(nil), c.countryIDs...)
}

// Enemy returns an enemy template by id.
func (c *Catalog) Enemy(id string) (*Enemy, bool) {
	e, ok := c.enemyByID[id]
	return e, ok
}

// Enemies returns all enemy templates in declaration order.
func (c *Catalog) Enemies() []*Enemy {
	return c.enemies
}

// Boss returns a boss template by id.
func (c *Catalog) Boss(id string) (*Boss, bool) {
	b, ok := c.bossByID[id]
	return b, ok
}

// Bosses returns all boss templates in declaration order.
func (c *Catalog) Bosses() []*Boss {
	return c.bosses
}

// Shop returns a shop by id.
func (c *Catalog) Shop(id string) (*Shop, bool) {
	s, ok := c.shops[id]
	return s, ok
}

// Faction returns a reputation faction by id.
func (c *Catalog) Faction(id string) (*Faction, bool) {
	f, ok := c.factions[id]
	return f, ok
}

// Levels returns the experience curve.
func (c *Catalog) Levels() *Levels { return &c.levels }

// Stats returns the need rules.
func (c *Catalog) Stats() *Stats { return &c.stats }

// Personality returns the trait definitions.
func (c *Catalog) Personality() *Personality { return &c.personality }

// Fight returns the combat tuning.
func (c *Catalog) Fight() *Fight { return &c.fight }

// Walk returns the walk tables.
func (c *Catalog) Walk() *Walk { return &c.walk }

// WalkTier returns a walk tier by id.
func (c *Catalog) WalkTier(id string) (*WalkTier, bool) {
	t, ok := c.walkTiers[id]
	return t, ok
}

// Daily returns the daily chest tables.
func (c *Catalog) Daily() *Daily { return &c.daily }

// BackpackSlots returns the slot count of a backpack, falling back to the
// default for unknown or empty ids.
func (c *Catalog) BackpackSlots(backpackID string) int {
	if it, ok := c.items[backpackID]; ok && it.Slots > 0 {
		return it.Slots
	}
	return c.defaultBackpackSlots
}

// WeaponDamage returns the damage of an equipped weapon and whether it is known.
func (c *Catalog) WeaponDamage(weaponID string) (int, bool) {
	it, ok := c.items[weaponID]
	if !ok || it.Category != Weapons {
		return 0, false
	}
	return it.Damage, true
}

// ArmorDefense returns the defense of equipped armor, 0 when unarmored or unknown.
func (c *Catalog) ArmorDefense(armorID string) int {
	it, ok := c.items[armorID]
	if !ok || it.Category != Armor {
		return 0
	}
	return it.Defense
}

// index builds the lookup structures after decoding.
func (c *Catalog) index() {
	c.itemIDs = make([]string, 0, len(c.items))
	for id := range c.items {
		c.itemIDs = append(c.itemIDs, id)
	}
	sort.Strings(c.itemIDs)

	c.byCategory = make(map[Category][]*Item)
	c.byRarity = make(map[Rarity][]*Item)
	for _, id := range c.itemIDs {
		it := c.items[id]
		c.byCategory[it.Category] = append(c.byCategory[it.Category], it)
		c.byRarity[it.Rarity] = append(c.byRarity[it.Rarity], it)
	}

	c.enemyByID = make(map[string]*Enemy, len(c.enemies))
	for _, e := range c.enemies {
		c.enemyByID[e.ID] = e
	}
	c.bossByID = make(map[string]*Boss, len(c.bosses))
	for _, b := range c.bosses {
		c.bossByID[b.ID] = b
	}
	c.walkTiers = make(map[string]*WalkTier, len(c.walk.Tiers))
	for i := range c.walk.Tiers {
		c.walkTiers[c.walk.Tiers[i].ID] = &c.walk.Tiers[i]
	}
	for _, f := range c.factions {
		sort.Slice(f.Tiers, func(i, j int) bool { return f.Tiers[i].Threshold < f.Tiers[j].Threshold })
	}
	sort.Slice(c.daily.Streaks, func(i, j int) bool { return c.daily.Streaks[i].Days < c.daily.Streaks[j].Days })
}
