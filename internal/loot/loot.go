// Package loot picks items by rarity and rolls per-item drops.
package loot

import (
	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// Fallback is returned when a rarity band has no items.
const Fallback = "bread_stale"

// bands maps a requested rarity to the rarities it may yield.
var bands = map[catalog.Rarity][]catalog.Rarity{
	catalog.Common:    {catalog.Common},
	catalog.Uncommon:  {catalog.Common, catalog.Uncommon},
	catalog.Rare:      {catalog.Uncommon, catalog.Rare},
	catalog.Epic:      {catalog.Rare, catalog.Epic},
	catalog.Legendary: {catalog.Epic, catalog.Legendary},
}

// Table draws items from the catalog.
type Table struct {
	pools map[catalog.Rarity][]string
	rng   dice.Source
}

// New indexes the catalog's lootable items by band.
func New(cat *catalog.Catalog, rng dice.Source) *Table {
	t := &Table{pools: make(map[catalog.Rarity][]string), rng: rng}
	for want, rarities := range bands {
		for _, r := range rarities {
			for _, it := range cat.ItemsByRarity(r) {
				if !lootable(it) {
					continue
				}
				t.pools[want] = append(t.pools[want], it.ID)
			}
		}
	}
	return t
}

// lootable excludes default gear and boss trophies from random finds.
func lootable(it *catalog.Item) bool {
	return !player.IsDefaultEquipment(it.ID) && it.Category != catalog.BossLoot
}

// Band returns the item ids that a request for rarity can produce.
func (t *Table) Band(rarity catalog.Rarity) []string {
	return t.pools[rarity]
}

// Random returns a uniformly chosen item from the band of rarity.
func (t *Table) Random(rarity catalog.Rarity) string {
	id, ok := dice.Pick(t.rng, t.pools[rarity])
	if !ok {
		return Fallback
	}
	return id
}

// RandomN draws n items from the band of rarity.
func (t *Table) RandomN(rarity catalog.Rarity, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, t.Random(rarity))
	}
	return out
}

// Roll drops each entry independently with probability chance.
func (t *Table) Roll(entries []string, chance float64) []string {
	var out []string
	for _, id := range entries {
		if dice.Chance(t.rng, chance) {
			out = append(out, id)
		}
	}
	return out
}

// One returns a single uniformly chosen entry, or "" for an empty list.
func (t *Table) One(entries []string) string {
	id, _ := dice.Pick(t.rng, entries)
	return id
}
