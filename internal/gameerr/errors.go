package gameerr

import (
	"errors"
	"strconv"
	"time"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Numeric context for message templates
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with template metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NotFound reports a missing entity of the given kind.
func NotFound(kind, id string) *Error {
	return WithMetadata(CodeEntityNotFound, kind+" not found: "+id, map[string]string{
		MetaResource: kind,
		MetaID:       id,
	})
}

// Insufficient reports that resource is short: required vs available.
func Insufficient(resource string, required, available int) *Error {
	return WithMetadata(CodeInsufficientResource,
		"insufficient "+resource+": need "+strconv.Itoa(required)+", have "+strconv.Itoa(available),
		map[string]string{
			MetaResource:  resource,
			MetaRequired:  strconv.Itoa(required),
			MetaAvailable: strconv.Itoa(available),
		})
}

// Cooldown reports an action still on cooldown for remaining.
func Cooldown(remaining time.Duration) *Error {
	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60
	return WithMetadata(CodeInsufficientResource,
		"on cooldown for "+remaining.Round(time.Minute).String(),
		map[string]string{
			MetaResource:  ResourceCooldown,
			MetaRemaining: strconv.Itoa(hours) + "h" + strconv.Itoa(minutes) + "m",
			"hours":       strconv.Itoa(hours),
			"minutes":     strconv.Itoa(minutes),
		})
}

// Conflict reports that the player already has an active session of kind.
func Conflict(kind string) *Error {
	return WithMetadata(CodeSessionConflict, "already in "+kind, map[string]string{MetaResource: kind})
}

// Expired reports a missing or expired session of kind.
func Expired(kind string) *Error {
	return WithMetadata(CodeSessionExpiredOrMissing, kind+" expired or missing", map[string]string{MetaResource: kind})
}

// Invalid reports an invalid target.
func Invalid(message string) *Error {
	return New(CodeInvalidTarget, message)
}

// Input reports malformed input.
func Input(message string) *Error {
	return New(CodeInvalidInput, message)
}

// Dead reports that the player is dead.
func Dead() *Error {
	return New(CodePlayerDead, "player is dead")
}

// As returns the domain error in err's chain, if any.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the domain code of err, or CodeNone when err is not a domain error.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeNone
}
