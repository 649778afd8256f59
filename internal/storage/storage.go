// Package storage defines the persistence contract used by the game and an
// in-memory implementation of it.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

var (
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict marks a second fight or walk for a player who already has one,
	// or a duplicate player id.
	ErrConflict = errors.New("storage: conflict")
	// ErrInsufficient marks a removal of more items than the player owns.
	ErrInsufficient = errors.New("storage: insufficient quantity")
	// ErrBossDead marks damage against a boss that is dead and not yet respawned.
	ErrBossDead = errors.New("storage: boss is dead")
)

// InventoryEntry is one stack of identical items. Stacks partition by
// (item, durability).
type InventoryEntry struct {
	PlayerID   string
	ItemID     string
	Quantity   int
	Durability int
	ObtainedAt time.Time
}

// FightState is the state of a fight session.
type FightState string

const (
	FightActive         FightState = "active"
	FightResolvingRound FightState = "resolving_round"
	FightVictory        FightState = "victory"
	FightDefeat         FightState = "defeat"
	FightFled           FightState = "fled"
	FightExpired        FightState = "expired"
)

// EnemyKind is what a fight is against.
type EnemyKind string

const (
	EnemyNPC    EnemyKind = "npc"
	EnemyBoss   EnemyKind = "boss"
	EnemyPlayer EnemyKind = "player"
)

// Fight is an active fight session. A player has at most one.
type Fight struct {
	ID               string
	PlayerID         string
	OpponentPlayerID string
	EnemyKind        EnemyKind
	EnemyID          string
	PlayerHP         int
	OpponentHP       int
	EnemyHP          int
	EnemyMaxHP       int
	Round            int
	ChannelID        string
	StartedAt        time.Time
	ExpiresAt        time.Time
	State            FightState
}

// Expired reports whether the session can no longer be acted on.
func (f *Fight) Expired(now time.Time) bool {
	return !now.Before(f.ExpiresAt)
}

// Involves reports whether playerID is one of the fighters.
func (f *Fight) Involves(playerID string) bool {
	return f.PlayerID == playerID || (f.OpponentPlayerID != "" && f.OpponentPlayerID == playerID)
}

// WalkEvent is one pre-rolled event of a walk. Monetary fines depend on the
// player's money at completion and are computed then.
type WalkEvent struct {
	Type    string   `json:"type"`
	Money   int      `json:"money,omitempty"`
	XP      int      `json:"xp,omitempty"`
	Items   []string `json:"items,omitempty"`
	EnemyID string   `json:"enemy_id,omitempty"`
	Won     bool     `json:"won,omitempty"`
	Damage  int      `json:"damage,omitempty"`
	BossID  string   `json:"boss_id,omitempty"`
	Fined   bool     `json:"fined,omitempty"`
}

// Walk is an active walk. A player has at most one.
type Walk struct {
	ID        string
	PlayerID  string
	Tier      string
	StartedAt time.Time
	EndsAt    time.Time
	Events    []WalkEvent
	ChannelID string
}

// WorldBoss is the per-guild state of a boss.
type WorldBoss struct {
	BossID     string
	GuildID    string
	CurrentHP  int
	MaxHP      int
	Alive      bool
	Damage     map[string]int // playerID -> total damage dealt
	KilledBy   string
	KilledAt   time.Time
	RespawnsAt time.Time
}

// Clone returns a deep copy.
func (b *WorldBoss) Clone() *WorldBoss {
	c := *b
	c.Damage = make(map[string]int, len(b.Damage))
	for k, v := range b.Damage {
		c.Damage[k] = v
	}
	return &c
}

// BossDamage is an atomic damage request.
type BossDamage struct {
	BossID   string
	GuildID  string
	PlayerID string
	Amount   int

	// Used to lazily create or revive the boss.
	MaxHP        int
	RespawnAfter time.Duration
	Now          time.Time
}

// BossDamageResult is the outcome of ApplyBossDamage.
type BossDamageResult struct {
	Boss   *WorldBoss
	Dealt  int  // damage actually removed from the pool
	Killed bool // true only for the hit that brought HP to 0
}

// LeaderboardKey is a sortable player column.
type LeaderboardKey string

const (
	ByLevel            LeaderboardKey = "level"
	ByMoney            LeaderboardKey = "money"
	ByFightsWon        LeaderboardKey = "fights_won"
	ByBossesKilled     LeaderboardKey = "bosses_killed"
	ByTotalMoneyEarned LeaderboardKey = "total_money_earned"
)

// IsValid reports whether k is a known sort key.
func (k LeaderboardKey) IsValid() bool {
	switch k {
	case ByLevel, ByMoney, ByFightsWon, ByBossesKilled, ByTotalMoneyEarned:
		return true
	}
	return false
}

// Value returns the sort value of p for k.
func (k LeaderboardKey) Value(p *player.Player) int {
	switch k {
	case ByLevel:
		return p.Level
	case ByMoney:
		return p.Money
	case ByFightsWon:
		return p.FightsWon
	case ByBossesKilled:
		return p.BossesKilled
	case ByTotalMoneyEarned:
		return p.TotalMoneyEarned
	}
	return 0
}

// Repository is the persistence contract. Every mutation is written through
// immediately; missing rows are reported with ErrNotFound.
type Repository interface {
	GetPlayer(ctx context.Context, id string) (*player.Player, error)
	CreatePlayer(ctx context.Context, p *player.Player) error
	UpdatePlayer(ctx context.Context, id string, patch player.Patch) error
	DeletePlayer(ctx context.Context, id string) error

	GetInventory(ctx context.Context, playerID string) ([]InventoryEntry, error)
	AddItem(ctx context.Context, playerID, itemID string, qty, durability int) error
	RemoveItem(ctx context.Context, playerID, itemID string, qty int) error

	GetFight(ctx context.Context, id string) (*Fight, error)
	GetPlayerFight(ctx context.Context, playerID string) (*Fight, error)
	CreateFight(ctx context.Context, f *Fight) error
	UpdateFight(ctx context.Context, f *Fight) error
	DeleteFight(ctx context.Context, id string) error
	ExpiredFights(ctx context.Context, now time.Time) ([]*Fight, error)

	GetWalk(ctx context.Context, id string) (*Walk, error)
	GetPlayerWalk(ctx context.Context, playerID string) (*Walk, error)
	CreateWalk(ctx context.Context, w *Walk) error
	UpdateWalk(ctx context.Context, w *Walk) error
	DeleteWalk(ctx context.Context, id string) error
	DueWalks(ctx context.Context, now time.Time) ([]*Walk, error)

	GetWorldBoss(ctx context.Context, bossID, guildID string) (*WorldBoss, error)
	SaveWorldBoss(ctx context.Context, b *WorldBoss) error
	ApplyBossDamage(ctx context.Context, req BossDamage) (BossDamageResult, error)

	GetLeaderboard(ctx context.Context, key LeaderboardKey, limit int) ([]*player.Player, error)
}

// ApplyDamage runs the damage rules shared by every Repository implementation
// against the current boss state, which may be nil when no row exists yet.
// It returns the new state.
func ApplyDamage(current *WorldBoss, req BossDamage) (BossDamageResult, error) {
	var b *WorldBoss
	switch {
	case current == nil:
		b = &WorldBoss{
			BossID:    req.BossID,
			GuildID:   req.GuildID,
			CurrentHP: req.MaxHP,
			MaxHP:     req.MaxHP,
			Alive:     true,
			Damage:    make(map[string]int),
		}
	case !current.Alive && !req.Now.Before(current.RespawnsAt):
		b = Respawned(current)
	default:
		b = current.Clone()
	}

	if !b.Alive {
		return BossDamageResult{Boss: b}, ErrBossDead
	}

	dealt := req.Amount
	if dealt < 0 {
		dealt = 0
	}
	if dealt > b.CurrentHP {
		dealt = b.CurrentHP
	}
	b.CurrentHP -= dealt
	b.Damage[req.PlayerID] += dealt

	res := BossDamageResult{Boss: b, Dealt: dealt}
	if b.CurrentHP == 0 {
		b.Alive = false
		b.KilledBy = req.PlayerID
		b.KilledAt = req.Now
		b.RespawnsAt = req.Now.Add(req.RespawnAfter)
		res.Killed = true
	}
	return res, nil
}

// Respawned returns a revived copy of a dead boss with a fresh damage ledger.
func Respawned(b *WorldBoss) *WorldBoss {
	c := b.Clone()
	c.CurrentHP = c.MaxHP
	c.Alive = true
	c.Damage = make(map[string]int)
	c.KilledBy = ""
	c.KilledAt = time.Time{}
	c.RespawnsAt = time.Time{}
	return c
}
