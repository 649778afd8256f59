// Package game is the dispatcher in front of the simulation components.
//
// Every operation takes the acting player's lock, loads the player, brings
// their needs up to date, runs one component and writes the resulting patch
// and inventory changes back before returning a result record. Domain
// failures come back inside the record; the error return is reserved for
// storage failures.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/combat"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/daily"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/economy"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/keylock"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/messages"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/namefilter"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/statclock"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/telemetry"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/walk"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/worldboss"
)

// Options tunes an Engine. Zero values fall back to the catalog defaults.
type Options struct {
	FightTTL        time.Duration
	StatGranularity time.Duration
	DefaultGuild    string
	Locale          string
	Now             func() time.Time
}

// Event names passed to a Notifier.
const (
	EventWalkFinished = "walk_finished"
	EventFightExpired = "fight_expired"
	EventDuelRound    = "duel_round"
)

// Notifier receives results produced without a player request, such as
// walks finished by the scheduler.
type Notifier func(playerID, event string, payload any)

// Engine serializes and dispatches player operations.
type Engine struct {
	repo     storage.Repository
	cat      *catalog.Catalog
	rng      dice.Source
	clock    *statclock.Clock
	ledger   *leveling.Ledger
	loot     *loot.Table
	resolver *combat.Resolver
	fights   *combat.Sessions
	walks    *walk.Simulator
	bosses   *worldboss.Coordinator
	shop     *economy.Shop
	daily    *daily.Engine
	names    *namefilter.NameFilter
	msgs     *messages.Catalog
	locks    *keylock.Map
	tracer   trace.Tracer

	now    func() time.Time
	guild  string
	locale string
	notify Notifier
}

// New wires every component around one repository and random source.
func New(repo storage.Repository, cat *catalog.Catalog, rng dice.Source, names *namefilter.NameFilter, msgs *messages.Catalog, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if names == nil {
		names = namefilter.New(nil)
	}
	if msgs == nil {
		msgs = messages.MustLoad()
	}
	guild := opts.DefaultGuild
	if guild == "" {
		guild = "global"
	}
	locale := opts.Locale
	if locale == "" {
		locale = messages.BaseLocale
	}

	ledger := leveling.New(cat.Levels())
	table := loot.New(cat, rng)
	resolver := combat.NewResolver(cat, rng)
	return &Engine{
		repo:     repo,
		cat:      cat,
		rng:      rng,
		clock:    statclock.New(cat, opts.StatGranularity),
		ledger:   ledger,
		loot:     table,
		resolver: resolver,
		fights:   combat.NewSessions(cat, resolver, ledger, table, rng, opts.FightTTL),
		walks:    walk.New(cat, ledger, table, rng),
		bosses:   worldboss.New(repo, cat, now),
		shop:     economy.New(cat, ledger),
		daily:    daily.New(cat, table, rng),
		names:    names,
		msgs:     msgs,
		locks:    keylock.New(),
		tracer:   telemetry.Tracer(),
		now:      now,
		guild:    guild,
		locale:   locale,
	}
}

// SetNotifier installs the receiver of scheduler-driven results.
func (e *Engine) SetNotifier(n Notifier) {
	e.notify = n
}

// Catalog returns the definitions the engine runs on.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Ledger returns the experience curve.
func (e *Engine) Ledger() *leveling.Ledger {
	return e.ledger
}

// Result is the presentation contract shared by every operation record.
type Result struct {
	Success bool         `json:"success"`
	Code    gameerr.Code `json:"code,omitempty"`
	Message string       `json:"message"`
}

func ok(msg string) Result {
	return Result{Success: true, Message: msg}
}

// start opens a span for an operation.
func (e *Engine) start(ctx context.Context, op, playerID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "game."+op, trace.WithAttributes(
		attribute.String("game.op", op),
		attribute.String("player.id", playerID),
	))
}

// failure turns err into a failed Result. Domain errors are swallowed into
// the record; anything else is also returned for the caller to treat as fatal.
func (e *Engine) failure(ctx context.Context, span trace.Span, pr *messages.Printer, err error) (Result, error) {
	if ge, isDomain := gameerr.As(err); isDomain {
		span.SetAttributes(attribute.String("game.error", string(ge.Code)))
		logger.DebugContext(ctx, "Operation refused", "code", ge.Code, "reason", ge.Message)
		return Result{Code: ge.Code, Message: pr.Error(ge)}, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.ErrorContext(ctx, "Operation failed", "error", err)
	return Result{Message: pr.Error(err)}, err
}

// printer picks the locale of the player's country, falling back to the
// engine locale.
func (e *Engine) printer(p *player.Player) *messages.Printer {
	if p != nil {
		if co, found := e.cat.Country(p.Country); found && co.Locale != "" {
			return e.msgs.Printer(co.Locale)
		}
	}
	return e.msgs.Printer(e.locale)
}

// lockPair takes the locks of two players in a fixed order so that two
// duelists acting at once cannot deadlock.
func (e *Engine) lockPair(a, b string) func() {
	if b == "" || a == b {
		return e.locks.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	first := e.locks.Lock(a)
	second := e.locks.Lock(b)
	return func() {
		second()
		first()
	}
}

// load reads a player and brings their needs up to now. The stat update is
// written before the operation runs.
func (e *Engine) load(ctx context.Context, id string) (*player.Player, error) {
	p, err := e.repo.GetPlayer(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, gameerr.NotFound("player", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}

	up := e.clock.Advance(p, e.now())
	if up.Patch.IsEmpty() {
		return p, nil
	}
	if err := e.repo.UpdatePlayer(ctx, id, up.Patch); err != nil {
		return nil, fmt.Errorf("update stats of %s: %w", id, err)
	}
	up.Patch.Apply(p)
	if up.Died {
		logger.AlwaysContext(ctx, "Player died of neglect", "player", id, "hours", up.Hours)
	}
	return p, nil
}

// save writes the columns that differ between before and after.
func (e *Engine) save(ctx context.Context, before, after *player.Player) error {
	patch := player.Diff(before, after)
	if patch.IsEmpty() {
		return nil
	}
	if err := e.repo.UpdatePlayer(ctx, after.ID, patch); err != nil {
		return fmt.Errorf("update player %s: %w", after.ID, err)
	}
	return nil
}

// grant adds one fresh unit of every item.
func (e *Engine) grant(ctx context.Context, playerID string, items []string) error {
	for _, id := range items {
		if id == "" {
			continue
		}
		if err := e.repo.AddItem(ctx, playerID, id, 1, player.StartingDura); err != nil {
			return fmt.Errorf("grant %s to %s: %w", id, playerID, err)
		}
	}
	return nil
}

// itemName returns the display name of an item, or its id when unknown.
func (e *Engine) itemName(id string) string {
	if it, found := e.cat.Item(id); found {
		return it.Name
	}
	return id
}

// progressText renders the level-up lines of a ledger call.
func progressText(pr *messages.Printer, prog leveling.Progress) string {
	if !prog.LeveledUp {
		return ""
	}
	return pr.Text("level.up", prog.Level)
}

func join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
