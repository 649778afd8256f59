package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

// Memory is a Repository held in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	players   map[string]*player.Player
	inventory map[string][]InventoryEntry
	fights    map[string]*Fight
	walks     map[string]*Walk
	bosses    map[string]*WorldBoss
	now       func() time.Time
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		players:   make(map[string]*player.Player),
		inventory: make(map[string][]InventoryEntry),
		fights:    make(map[string]*Fight),
		walks:     make(map[string]*Walk),
		bosses:    make(map[string]*WorldBoss),
		now:       time.Now,
	}
}

func bossKey(bossID, guildID string) string {
	return guildID + "/" + bossID
}

func (m *Memory) GetPlayer(_ context.Context, id string) (*player.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) CreatePlayer(_ context.Context, p *player.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[p.ID]; exists {
		return ErrConflict
	}
	m.players[p.ID] = p.Clone()
	return nil
}

func (m *Memory) UpdatePlayer(_ context.Context, id string, patch player.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return ErrNotFound
	}
	if patch.IsEmpty() {
		return nil
	}
	patch.Apply(p)
	p.UpdatedAt = m.now()
	return nil
}

func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[id]; !ok {
		return ErrNotFound
	}
	delete(m.players, id)
	delete(m.inventory, id)
	for fid, f := range m.fights {
		if f.Involves(id) {
			delete(m.fights, fid)
		}
	}
	for wid, w := range m.walks {
		if w.PlayerID == id {
			delete(m.walks, wid)
		}
	}
	return nil
}

func (m *Memory) GetInventory(_ context.Context, playerID string) ([]InventoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := append([]InventoryEntry(nil), m.inventory[playerID]...)
	SortInventory(entries)
	return entries, nil
}

func (m *Memory) AddItem(_ context.Context, playerID, itemID string, qty, durability int) error {
	if qty <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[playerID]; !ok {
		return ErrNotFound
	}
	entries := m.inventory[playerID]
	for i := range entries {
		if entries[i].ItemID == itemID && entries[i].Durability == durability {
			entries[i].Quantity += qty
			return nil
		}
	}
	m.inventory[playerID] = append(entries, InventoryEntry{
		PlayerID:   playerID,
		ItemID:     itemID,
		Quantity:   qty,
		Durability: durability,
		ObtainedAt: m.now(),
	})
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, playerID, itemID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.inventory[playerID]
	if CountItem(entries, itemID) < qty {
		return ErrInsufficient
	}

	SortInventory(entries)
	remaining := qty
	kept := entries[:0]
	for _, e := range entries {
		if e.ItemID == itemID && remaining > 0 {
			take := min(e.Quantity, remaining)
			e.Quantity -= take
			remaining -= take
		}
		if e.Quantity > 0 {
			kept = append(kept, e)
		}
	}
	m.inventory[playerID] = kept
	return nil
}

func (m *Memory) GetFight(_ context.Context, id string) (*Fight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.fights[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *f
	return &c, nil
}

func (m *Memory) GetPlayerFight(_ context.Context, playerID string) (*Fight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.fights {
		if f.Involves(playerID) {
			c := *f
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateFight(_ context.Context, f *Fight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.fights[f.ID]; exists {
		return ErrConflict
	}
	for _, existing := range m.fights {
		if existing.Involves(f.PlayerID) || (f.OpponentPlayerID != "" && existing.Involves(f.OpponentPlayerID)) {
			return ErrConflict
		}
	}
	c := *f
	m.fights[f.ID] = &c
	return nil
}

func (m *Memory) UpdateFight(_ context.Context, f *Fight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fights[f.ID]; !ok {
		return ErrNotFound
	}
	c := *f
	m.fights[f.ID] = &c
	return nil
}

func (m *Memory) DeleteFight(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fights[id]; !ok {
		return ErrNotFound
	}
	delete(m.fights, id)
	return nil
}

func (m *Memory) ExpiredFights(_ context.Context, now time.Time) ([]*Fight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Fight
	for _, f := range m.fights {
		if f.Expired(now) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (m *Memory) GetWalk(_ context.Context, id string) (*Walk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.walks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneWalk(w), nil
}

func (m *Memory) GetPlayerWalk(_ context.Context, playerID string) (*Walk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.walks {
		if w.PlayerID == playerID {
			return cloneWalk(w), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateWalk(_ context.Context, w *Walk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.walks[w.ID]; exists {
		return ErrConflict
	}
	for _, existing := range m.walks {
		if existing.PlayerID == w.PlayerID {
			return ErrConflict
		}
	}
	m.walks[w.ID] = cloneWalk(w)
	return nil
}

func (m *Memory) UpdateWalk(_ context.Context, w *Walk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.walks[w.ID]; !ok {
		return ErrNotFound
	}
	m.walks[w.ID] = cloneWalk(w)
	return nil
}

func (m *Memory) DeleteWalk(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.walks[id]; !ok {
		return ErrNotFound
	}
	delete(m.walks, id)
	return nil
}

func (m *Memory) DueWalks(_ context.Context, now time.Time) ([]*Walk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Walk
	for _, w := range m.walks {
		if !now.Before(w.EndsAt) {
			out = append(out, cloneWalk(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (m *Memory) GetWorldBoss(_ context.Context, bossID, guildID string) (*WorldBoss, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bosses[bossKey(bossID, guildID)]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (m *Memory) SaveWorldBoss(_ context.Context, b *WorldBoss) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bosses[bossKey(b.BossID, b.GuildID)] = b.Clone()
	return nil
}

func (m *Memory) ApplyBossDamage(_ context.Context, req BossDamage) (BossDamageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := bossKey(req.BossID, req.GuildID)
	res, err := ApplyDamage(m.bosses[key], req)
	if err != nil {
		return res, err
	}
	m.bosses[key] = res.Boss.Clone()
	return res, nil
}

func (m *Memory) GetLeaderboard(_ context.Context, key LeaderboardKey, limit int) ([]*player.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*player.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := key.Value(out[i]), key.Value(out[j])
		if vi != vj {
			return vi > vj
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneWalk(w *Walk) *Walk {
	c := *w
	c.Events = make([]WalkEvent, len(w.Events))
	for i, ev := range w.Events {
		ev.Items = append([]string(nil), ev.Items...)
		c.Events[i] = ev
	}
	return &c
}

// SortInventory orders entries by item id, highest durability first.
func SortInventory(entries []InventoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ItemID != entries[j].ItemID {
			return entries[i].ItemID < entries[j].ItemID
		}
		return entries[i].Durability > entries[j].Durability
	})
}

// TopDurability returns the durability of the stack RemoveItem would take
// from first, and whether the item is present at all.
func TopDurability(entries []InventoryEntry, itemID string) (int, bool) {
	best, found := 0, false
	for _, e := range entries {
		if e.ItemID == itemID && e.Quantity > 0 && (!found || e.Durability > best) {
			best, found = e.Durability, true
		}
	}
	return best, found
}

// CountItem returns the total quantity of an item across stacks.
func CountItem(entries []InventoryEntry, itemID string) int {
	total := 0
	for _, e := range entries {
		if e.ItemID == itemID {
			total += e.Quantity
		}
	}
	return total
}

// DistinctItems returns the number of distinct item ids, which is what
// backpack slots limit.
func DistinctItems(entries []InventoryEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.ItemID] = struct{}{}
	}
	return len(seen)
}
