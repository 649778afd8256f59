// Package economy prices and settles shop trades and tracks faction
// reputation.
package economy

import (
	"math"
	"sort"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// LombardID is the shop that buys items from players.
const LombardID = "lombard"

// PremiumFeature is the unlock that raises lombard rates for accepted categories.
const PremiumFeature = "lombard_premium"

// ActionBuyWeapon is the reputation action applied when a weapon is bought.
const ActionBuyWeapon = "buy_weapon"

// Shop prices and settles trades.
type Shop struct {
	cat    *catalog.Catalog
	ledger *leveling.Ledger
}

// New creates a Shop.
func New(cat *catalog.Catalog, ledger *leveling.Ledger) *Shop {
	return &Shop{cat: cat, ledger: ledger}
}

// Trade is a settled purchase or sale. Player is the updated copy; the
// caller moves Quantity of ItemID in or out of the inventory.
type Trade struct {
	Player   *player.Player
	ShopID   string
	ItemID   string
	Quantity int
	Price    int
}

// BuyPrice is the total cost of qty items in a shop, rounded up. Shops with
// a per-reputation discount reward positive bandit standing; the class buy
// discount applies after it.
func (s *Shop) BuyPrice(p *player.Player, shop *catalog.Shop, item *catalog.Item, qty int) int {
	price := float64(item.Price) * shop.PriceMultiplier * float64(qty)

	if shop.DiscountPerReputation > 0 && p.RepBandits > 0 {
		price *= math.Max(0, 1-float64(p.RepBandits)*shop.DiscountPerReputation)
	}
	if d := s.cat.Bonuses(p.Class).BuyDiscount; d > 0 {
		price *= 1 - d
	}
	return int(math.Ceil(price))
}

// Buy validates and settles a purchase against the player's inventory.
func (s *Shop) Buy(p *player.Player, inv []storage.InventoryEntry, shopID, itemID string, qty int) (Trade, error) {
	if qty < 1 {
		return Trade{}, gameerr.Input("quantity must be positive")
	}
	shop, ok := s.cat.Shop(shopID)
	if !ok {
		return Trade{}, gameerr.NotFound("shop", shopID)
	}
	if !shop.Sells(itemID) {
		return Trade{}, gameerr.Invalid(shop.Name + " does not sell " + itemID)
	}
	item, ok := s.cat.Item(itemID)
	if !ok {
		return Trade{}, gameerr.NotFound("item", itemID)
	}

	if p.Level < shop.LevelRequired {
		return Trade{}, gameerr.Insufficient(gameerr.ResourceLevel, shop.LevelRequired, p.Level)
	}
	for _, faction := range sortedKeys(shop.ReputationRequired) {
		need := shop.ReputationRequired[faction]
		if have := p.Reputation(faction); have < need {
			return Trade{}, gameerr.Insufficient(gameerr.ResourceRep, need, have)
		}
	}

	price := s.BuyPrice(p, shop, item, qty)
	if p.Money < price {
		return Trade{}, gameerr.Insufficient(gameerr.ResourceMoney, price, p.Money)
	}

	if storage.CountItem(inv, itemID) == 0 {
		slots := s.cat.BackpackSlots(p.EquippedBackpack)
		if used := storage.DistinctItems(inv); used >= slots {
			return Trade{}, gameerr.Insufficient(gameerr.ResourceSlots, used+1, slots)
		}
	}

	next := p.Clone()
	next.Money -= price
	if item.Category == catalog.Weapons {
		s.ApplyAction(next, ActionBuyWeapon)
	}
	return Trade{Player: next, ShopID: shop.ID, ItemID: itemID, Quantity: qty, Price: price}, nil
}

// SellPrice is what the lombard pays for qty items, rounded down. Items
// with a fixed sell price use it as the unit value. 0 means unsellable.
func (s *Shop) SellPrice(p *player.Player, item *catalog.Item, qty int) int {
	lombard, ok := s.cat.Shop(LombardID)
	if !ok || !lombard.Buys() {
		return 0
	}

	var value float64
	switch {
	case item.SellPrice > 0:
		value = float64(item.SellPrice)
	case item.Price > 0:
		mult := lombard.SellMultiplier
		if lombard.PremiumMultiplier > 0 && lombard.Accepts(item.Category) && s.ledger.HasUnlocked(p.Level, PremiumFeature) {
			mult = lombard.PremiumMultiplier
		}
		value = float64(item.Price) * mult
	default:
		return 0
	}

	value *= float64(qty)
	if b := s.cat.Bonuses(p.Class).SellPrice; b > 0 {
		value *= 1 + b
	}
	return int(math.Floor(value))
}

// Sell validates and settles a sale at the lombard.
func (s *Shop) Sell(p *player.Player, inv []storage.InventoryEntry, itemID string, qty int) (Trade, error) {
	if qty < 1 {
		return Trade{}, gameerr.Input("quantity must be positive")
	}
	item, ok := s.cat.Item(itemID)
	if !ok {
		return Trade{}, gameerr.NotFound("item", itemID)
	}
	if have := storage.CountItem(inv, itemID); have < qty {
		return Trade{}, gameerr.Insufficient(gameerr.ResourceItem, qty, have)
	}

	price := s.SellPrice(p, item, qty)
	if price <= 0 {
		return Trade{}, gameerr.Invalid(item.Name + " cannot be sold")
	}

	next := p.Clone()
	next.Earn(price)
	return Trade{Player: next, ShopID: LombardID, ItemID: itemID, Quantity: qty, Price: price}, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
