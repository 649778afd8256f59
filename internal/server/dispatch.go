package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/game"
)

// ErrBadRequest marks requests the gateway could not route. They count
// toward the sender's lockout.
var ErrBadRequest = errors.New("bad request")

// Request is one client message.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Op     string          `json:"op"`
	Player string          `json:"player,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request, or carries an Event pushed for a player.
type Response struct {
	ID     string `json:"id,omitempty"`
	Op     string `json:"op,omitempty"`
	Event  string `json:"event,omitempty"`
	Player string `json:"player,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// args is the union of every operation's arguments.
type args struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Class    string `json:"class"`
	Item     string `json:"item"`
	Shop     string `json:"shop"`
	Enemy    string `json:"enemy"`
	Target   string `json:"target"`
	Tier     string `json:"tier"`
	Boss     string `json:"boss"`
	Guild    string `json:"guild"`
	Channel  string `json:"channel"`
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
	Limit    int    `json:"limit"`
}

type handler struct {
	anonymous bool // runs without a player id
	run       func(ctx context.Context, e *game.Engine, player string, a args) (any, error)
}

var handlers = map[string]handler{
	"create": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.CreatePlayer(ctx, id, a.Name, a.Country, a.Class)
	}},
	"delete": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.DeletePlayer(ctx, id)
	}},
	"profile": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.Profile(ctx, id)
	}},
	"respawn": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.Respawn(ctx, id)
	}},
	"use": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.UseItem(ctx, id, a.Item)
	}},
	"equip": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.Equip(ctx, id, a.Item)
	}},
	"leaderboard": {anonymous: true, run: func(ctx context.Context, e *game.Engine, _ string, a args) (any, error) {
		return e.Leaderboard(ctx, a.Key, a.Limit)
	}},
	"fight": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.StartFight(ctx, id, a.Enemy, a.Channel)
	}},
	"duel": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.Duel(ctx, id, a.Target, a.Channel)
	}},
	"attack": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.Attack(ctx, id)
	}},
	"flee": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.Flee(ctx, id)
	}},
	"boss": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.AttackBoss(ctx, id, a.Guild, a.Boss)
	}},
	"bosses": {anonymous: true, run: func(ctx context.Context, e *game.Engine, _ string, a args) (any, error) {
		return e.Bosses(ctx, a.Guild)
	}},
	"walk": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.StartWalk(ctx, id, a.Tier, a.Channel)
	}},
	"complete_walk": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.CompleteWalk(ctx, id)
	}},
	"buy": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.Buy(ctx, id, a.Shop, a.Item, quantity(a))
	}},
	"sell": {run: func(ctx context.Context, e *game.Engine, id string, a args) (any, error) {
		return e.Sell(ctx, id, a.Item, quantity(a))
	}},
	"daily": {run: func(ctx context.Context, e *game.Engine, id string, _ args) (any, error) {
		return e.ClaimDaily(ctx, id)
	}},
}

// quantity defaults an omitted quantity to one.
func quantity(a args) int {
	if a.Quantity == 0 {
		return 1
	}
	return a.Quantity
}

// Ops lists the supported operation names.
func Ops() []string {
	ops := make([]string, 0, len(handlers))
	for op := range handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Dispatcher decodes requests and routes them to the engine.
type Dispatcher struct {
	engine *game.Engine
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(engine *game.Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Decode parses a raw message without running it.
func (d *Dispatcher) Decode(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("%w: malformed json", ErrBadRequest)
	}
	req.Op = strings.ToLower(strings.TrimSpace(req.Op))
	req.Player = strings.TrimSpace(req.Player)
	return req, nil
}

// Handle runs one decoded request. Routing problems come back wrapped in
// ErrBadRequest; any other error is a storage failure reported by the engine.
// The Response is filled in either case.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (Response, error) {
	resp := Response{ID: req.ID, Op: req.Op}

	h, found := handlers[req.Op]
	if !found {
		resp.Error = "unknown op: " + req.Op
		return resp, fmt.Errorf("%w: unknown op %q", ErrBadRequest, req.Op)
	}
	if !h.anonymous && req.Player == "" {
		resp.Error = "player is required"
		return resp, fmt.Errorf("%w: %s without player", ErrBadRequest, req.Op)
	}

	var a args
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &a); err != nil {
			resp.Error = "malformed args"
			return resp, fmt.Errorf("%w: args of %s: %v", ErrBadRequest, req.Op, err)
		}
	}

	result, err := h.run(ctx, d.engine, req.Player, a)
	resp.Result = result
	if err != nil {
		resp.Error = "internal error"
		return resp, fmt.Errorf("%s: %w", req.Op, err)
	}
	return resp, nil
}
