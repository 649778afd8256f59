// Package gameerr defines the recoverable domain errors returned by the game
// components. A domain error never means the world state is broken: it
// reports why a request could not be carried out.
package gameerr

// Code is a machine-readable error code.
type Code string

const (
	// CodeNone marks a successful result.
	CodeNone Code = ""

	// CodeEntityNotFound: the player, item, enemy, boss or shop does not exist.
	CodeEntityNotFound Code = "ENTITY_NOT_FOUND"
	// CodeInsufficientResource: energy, money, backpack space or a cooldown blocks the action.
	CodeInsufficientResource Code = "INSUFFICIENT_RESOURCE"
	// CodeSessionConflict: the player is already fighting or walking.
	CodeSessionConflict Code = "SESSION_CONFLICT"
	// CodeSessionExpiredOrMissing: the fight or walk is gone or timed out.
	CodeSessionExpiredOrMissing Code = "SESSION_EXPIRED_OR_MISSING"
	// CodeInvalidTarget: the target cannot be acted on (dead boss, self duel).
	CodeInvalidTarget Code = "INVALID_TARGET"
	// CodeInvalidInput: malformed request arguments.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodePlayerDead: the player must respawn first.
	CodePlayerDead Code = "PLAYER_DEAD"
)

// Metadata keys shared by callers and message templates.
const (
	MetaRequired  = "required"
	MetaAvailable = "available"
	MetaRemaining = "remaining"
	MetaResource  = "resource"
	MetaID        = "id"
)

// Resource names used with MetaResource.
const (
	ResourceEnergy   = "energy"
	ResourceMoney    = "money"
	ResourceSlots    = "slots"
	ResourceCooldown = "cooldown"
	ResourceLevel    = "level"
	ResourceRep      = "reputation"
	ResourceItem     = "item"
)
