package game

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/economy"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/namefilter"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// Needs a respawned player wakes up with.
const (
	RespawnHealthFraction = 0.5
	RespawnHunger         = 50
	RespawnThirst         = 50
	RespawnEnergy         = 30
)

// UseRevive is the item use tag that brings a dead player back without the
// respawn penalty.
const UseRevive = "revive"

// PlayerResult carries a player snapshot after an operation.
type PlayerResult struct {
	Result
	Player    *player.Player `json:"player,omitempty"`
	Items     []string       `json:"items,omitempty"`
	MoneyLost int            `json:"money_lost,omitempty"`
}

// ProfileResult is everything a character sheet shows.
type ProfileResult struct {
	Result
	Player      *player.Player           `json:"player,omitempty"`
	Inventory   []storage.InventoryEntry `json:"inventory,omitempty"`
	Slots       int                      `json:"slots"`
	NextLevelXP int                      `json:"next_level_xp"`
	Unlocks     []string                 `json:"unlocks,omitempty"`
	Traits      []catalog.Trait          `json:"traits,omitempty"`
	Standings   []economy.Standing       `json:"standings,omitempty"`
}

// LeaderboardResult is a ranked player list.
type LeaderboardResult struct {
	Result
	Key     storage.LeaderboardKey `json:"key"`
	Players []*player.Player       `json:"players"`
}

// CreatePlayer registers a new character for a chat user.
func (e *Engine) CreatePlayer(ctx context.Context, id, name, countryID, classID string) (PlayerResult, error) {
	ctx, span := e.start(ctx, "CreatePlayer", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.createPlayer(ctx, id, name, countryID, classID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) createPlayer(ctx context.Context, id, name, countryID, classID string) (PlayerResult, error) {
	name = namefilter.Normalize(name)
	if res := e.names.Check(name); !res.Allowed {
		return PlayerResult{}, gameerr.Input("name rejected: " + res.Reason)
	}
	country, found := e.cat.Country(countryID)
	if !found {
		return PlayerResult{}, gameerr.Input("unknown country: " + countryID)
	}
	class, found := e.cat.Class(classID)
	if !found {
		return PlayerResult{}, gameerr.Input("unknown class: " + classID)
	}

	p := player.New(id, name, country, class, e.now())
	if err := e.repo.CreatePlayer(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return PlayerResult{}, gameerr.Input("character already exists")
		}
		return PlayerResult{}, fmt.Errorf("create player %s: %w", id, err)
	}
	if err := e.grant(ctx, id, class.StartingItems); err != nil {
		return PlayerResult{}, err
	}

	logger.InfoContext(ctx, "Player created", "player", id, "name", name, "class", class.ID, "country", country.ID)
	pr := e.printer(p)
	return PlayerResult{
		Result: ok(pr.Text("player.created", p.Name, class.Name, p.Money)),
		Player: p,
		Items:  append([]string(nil), class.StartingItems...),
	}, nil
}

// DeletePlayer removes a character with its inventory and sessions.
func (e *Engine) DeletePlayer(ctx context.Context, id string) (PlayerResult, error) {
	ctx, span := e.start(ctx, "DeletePlayer", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	p, err := e.repo.GetPlayer(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		err = gameerr.NotFound("player", id)
	}
	if err == nil {
		err = e.repo.DeletePlayer(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			err = gameerr.NotFound("player", id)
		}
	}
	if err != nil {
		var rec PlayerResult
		rec.Result, err = e.failure(ctx, span, e.printer(p), err)
		return rec, err
	}

	logger.InfoContext(ctx, "Player deleted", "player", id)
	return PlayerResult{Result: ok(e.printer(p).Text("player.deleted", p.Name))}, nil
}

// Profile refreshes the player's needs and returns their character sheet.
func (e *Engine) Profile(ctx context.Context, id string) (ProfileResult, error) {
	ctx, span := e.start(ctx, "Profile", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.profile(ctx, id)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) profile(ctx context.Context, id string) (ProfileResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return ProfileResult{}, err
	}
	inv, err := e.repo.GetInventory(ctx, id)
	if err != nil {
		return ProfileResult{Player: p}, fmt.Errorf("get inventory of %s: %w", id, err)
	}

	rec := ProfileResult{
		Result:    ok(""),
		Player:    p,
		Inventory: inv,
		Slots:     e.cat.BackpackSlots(p.EquippedBackpack),
		Unlocks:   e.ledger.UnlockedFeatures(p.Level),
		Traits:    player.DominantTraits(p, e.cat.Personality()),
		Standings: e.shop.Standings(p),
	}
	if p.Level < e.ledger.MaxLevel() {
		rec.NextLevelXP = e.ledger.XPRequired(p.Level)
	}
	return rec, nil
}

// Respawn brings a dead player back with reduced needs at the cost of part
// of their money.
func (e *Engine) Respawn(ctx context.Context, id string) (PlayerResult, error) {
	ctx, span := e.start(ctx, "Respawn", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.respawn(ctx, id)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) respawn(ctx context.Context, id string) (PlayerResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return PlayerResult{}, err
	}
	if !p.IsDead {
		return PlayerResult{Player: p}, gameerr.Invalid("player is alive")
	}

	next := p.Clone()
	penalty := e.cat.Stats().Health.DeathPenalty
	if penalty <= 0 {
		penalty = 0.5
	}
	lost := next.Spend(int(math.Floor(float64(p.Money) * penalty)))
	next.IsDead = false
	next.LastStatUpdate = e.now()
	next.Health = max(1, int(math.Floor(float64(next.MaxHealth)*RespawnHealthFraction)))
	next.Hunger = RespawnHunger
	next.Thirst = RespawnThirst
	next.Energy = RespawnEnergy

	if err := e.save(ctx, p, next); err != nil {
		return PlayerResult{Player: p}, err
	}
	logger.InfoContext(ctx, "Player respawned", "player", id, "money_lost", lost)
	return PlayerResult{
		Result:    ok(e.printer(next).Text("player.respawned", lost)),
		Player:    next,
		MoneyLost: lost,
	}, nil
}

// UseItem consumes one unit of an item for its need effects.
func (e *Engine) UseItem(ctx context.Context, id, itemID string) (PlayerResult, error) {
	ctx, span := e.start(ctx, "UseItem", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.useItem(ctx, id, itemID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) useItem(ctx context.Context, id, itemID string) (PlayerResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return PlayerResult{}, err
	}
	item, found := e.cat.Item(itemID)
	if !found {
		return PlayerResult{Player: p}, gameerr.NotFound("item", itemID)
	}
	reviving := item.Use == UseRevive
	if p.IsDead && !reviving {
		return PlayerResult{Player: p}, gameerr.Dead()
	}
	if !reviving && !item.IsUsable() {
		return PlayerResult{Player: p}, gameerr.Invalid(item.Name + " cannot be used")
	}
	if reviving && !p.IsDead {
		return PlayerResult{Player: p}, gameerr.Invalid("player is alive")
	}

	if err := e.repo.RemoveItem(ctx, id, itemID, 1); err != nil {
		if errors.Is(err, storage.ErrInsufficient) {
			return PlayerResult{Player: p}, gameerr.Insufficient(gameerr.ResourceItem, 1, 0)
		}
		return PlayerResult{Player: p}, fmt.Errorf("remove %s from %s: %w", itemID, id, err)
	}

	next := p.Clone()
	if reviving {
		next.IsDead = false
		next.LastStatUpdate = e.now()
		next.Health = next.MaxHealth
	}
	next.Hunger = min(player.NeedMax, next.Hunger+item.Hunger)
	next.Thirst = min(player.NeedMax, next.Thirst+item.Thirst)
	next.Energy = min(player.NeedMax, next.Energy+item.Energy)
	next.Health = min(next.MaxHealth, next.Health+item.Health)
	if item.Addiction > 0 {
		next.Addiction = min(player.NeedMax, next.Addiction+item.Addiction)
		player.ApplyAction(next, e.cat.Personality(), player.ActionUseDrugs)
	}
	next.Clamp()

	if err := e.save(ctx, p, next); err != nil {
		return PlayerResult{Player: p}, err
	}
	return PlayerResult{Result: ok(e.printer(next).Text("item.used", item.Name)), Player: next}, nil
}

// Equip moves an item from the inventory into its equipment slot. The piece
// it replaces goes back to the inventory unless it is default gear.
func (e *Engine) Equip(ctx context.Context, id, itemID string) (PlayerResult, error) {
	ctx, span := e.start(ctx, "Equip", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.equip(ctx, id, itemID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) equip(ctx context.Context, id, itemID string) (PlayerResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return PlayerResult{}, err
	}
	if p.IsDead {
		return PlayerResult{Player: p}, gameerr.Dead()
	}
	if p, err = e.settle(ctx, p); err != nil {
		return PlayerResult{Player: p}, err
	}
	if p.IsInFight {
		return PlayerResult{Player: p}, gameerr.Conflict("fight")
	}
	item, found := e.cat.Item(itemID)
	if !found {
		return PlayerResult{Player: p}, gameerr.NotFound("item", itemID)
	}
	if !item.IsEquippable() {
		return PlayerResult{Player: p}, gameerr.Invalid(item.Name + " cannot be equipped")
	}

	next := p.Clone()
	var slot *string
	var dura *int
	switch item.Category {
	case catalog.Weapons:
		slot, dura = &next.EquippedWeapon, &next.WeaponDura
	case catalog.Armor:
		slot, dura = &next.EquippedArmor, &next.ArmorDura
	default:
		slot, dura = &next.EquippedBackpack, &next.BackpackDura
	}
	if *slot == itemID {
		return PlayerResult{Player: p}, gameerr.Invalid(item.Name + " is already equipped")
	}

	inv, err := e.repo.GetInventory(ctx, id)
	if err != nil {
		return PlayerResult{Player: p}, fmt.Errorf("inventory of %s: %w", id, err)
	}
	taken, found := storage.TopDurability(inv, itemID)
	if !found {
		return PlayerResult{Player: p}, gameerr.Insufficient(gameerr.ResourceItem, 1, 0)
	}
	if err := e.repo.RemoveItem(ctx, id, itemID, 1); err != nil {
		if errors.Is(err, storage.ErrInsufficient) {
			return PlayerResult{Player: p}, gameerr.Insufficient(gameerr.ResourceItem, 1, 0)
		}
		return PlayerResult{Player: p}, fmt.Errorf("remove %s from %s: %w", itemID, id, err)
	}
	previous, previousDura := *slot, *dura
	*slot, *dura = itemID, taken
	if previous != "" && !player.IsDefaultEquipment(previous) {
		if previousDura <= 0 {
			previousDura = player.StartingDura
		}
		if err := e.repo.AddItem(ctx, id, previous, 1, previousDura); err != nil {
			return PlayerResult{Player: p}, fmt.Errorf("return %s to %s: %w", previous, id, err)
		}
	}

	if err := e.save(ctx, p, next); err != nil {
		return PlayerResult{Player: p}, err
	}
	return PlayerResult{Result: ok(e.printer(next).Text("item.equipped", item.Name)), Player: next}, nil
}

// Leaderboard ranks players by one of the sortable statistics.
func (e *Engine) Leaderboard(ctx context.Context, key string, limit int) (LeaderboardResult, error) {
	ctx, span := e.start(ctx, "Leaderboard", "")
	defer span.End()

	k := storage.LeaderboardKey(key)
	if k == "" {
		k = storage.ByLevel
	}
	var err error
	if !k.IsValid() {
		err = gameerr.Input("unknown leaderboard: " + key)
	}

	var players []*player.Player
	if err == nil {
		players, err = e.repo.GetLeaderboard(ctx, k, limit)
		if err != nil {
			err = fmt.Errorf("leaderboard %s: %w", k, err)
		}
	}
	if err != nil {
		var rec LeaderboardResult
		rec.Result, err = e.failure(ctx, span, e.printer(nil), err)
		return rec, err
	}
	return LeaderboardResult{Result: ok(""), Key: k, Players: players}, nil
}
