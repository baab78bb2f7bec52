// Package gameerr defines the recoverable error kinds returned by the lab engine.
package gameerr

import (
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeNotFound is returned for unknown room, object, scenario or session ids.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidSelection is returned when an object is not in the room or
	// another interaction is already active.
	CodeInvalidSelection Code = "INVALID_SELECTION"
	// CodeNoActiveInteraction is returned by advance/close with nothing active.
	CodeNoActiveInteraction Code = "NO_ACTIVE_INTERACTION"
	// CodeRoomLocked is returned when moving to, or selecting in, a locked room.
	CodeRoomLocked Code = "ROOM_LOCKED"
	// CodeStepNotSatisfied is returned when a step's predicate is unmet.
	CodeStepNotSatisfied Code = "STEP_NOT_SATISFIED"
)

// Sentinels for errors.Is. Matching is by code, so any *Error with the same
// code satisfies errors.Is(err, ErrRoomLocked).
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidSelection    = &Error{Code: CodeInvalidSelection, Message: "invalid selection"}
	ErrNoActiveInteraction = &Error{Code: CodeNoActiveInteraction, Message: "no active interaction"}
	ErrRoomLocked          = &Error{Code: CodeRoomLocked, Message: "room locked"}
	ErrStepNotSatisfied    = &Error{Code: CodeStepNotSatisfied, Message: "step not satisfied"}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message for logs
	Metadata map[string]string // Ids involved (room, object, option...)
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus maps the code to the status used by the JSON API.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidSelection, CodeNoActiveInteraction:
		return http.StatusConflict
	case CodeRoomLocked:
		return http.StatusForbidden
	case CodeStepNotSatisfied:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// New creates a domain error with a code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithMetadata creates a domain error carrying the ids it concerns.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// NotFound reports an unknown id of the given kind ("room", "object", ...).
func NotFound(kind, id string) *Error {
	return WithMetadata(CodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), map[string]string{kind: id})
}

// RoomLocked reports a room that is not in the unlocked set.
func RoomLocked(roomID string) *Error {
	return WithMetadata(CodeRoomLocked, fmt.Sprintf("room is locked: %s", roomID), map[string]string{"room": roomID})
}

// StepNotSatisfied reports an advance attempted before the step's predicate holds.
func StepNotSatisfied(reason string) *Error {
	return WithMetadata(CodeStepNotSatisfied, "step not satisfied: "+reason, map[string]string{"reason": reason})
}
