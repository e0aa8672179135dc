// internal/game/errors.go
package game

import "errors"

// Rejections raised by room operations. None of them leave the room state modified.
var (
	// ErrTurnViolation is returned when someone other than the turn holder submits input.
	ErrTurnViolation = errors.New("not your turn")
	// ErrAiBusy is returned for player input while the narrator is working.
	ErrAiBusy = errors.New("the narrator is still narrating")
	// ErrUnauthorized is returned when a non-host attempts a host-only operation.
	ErrUnauthorized = errors.New("only the host can do that")
	// ErrNotYourTurn is returned when finalize is requested by anyone but the turn holder.
	ErrNotYourTurn = errors.New("only the turn holder can finalize the turn")
	// ErrInvalidPhase is returned when an operation does not apply to the room's phase.
	ErrInvalidPhase = errors.New("operation not allowed in the current phase")
	// ErrChecklistIncomplete is returned when the host starts a room that is not ready.
	ErrChecklistIncomplete = errors.New("the pre-game checklist is not complete")
	// ErrValidation is returned for malformed input, before any state is touched.
	ErrValidation = errors.New("invalid request")
	// ErrNotParticipant is returned when the actor is not seated in the room.
	ErrNotParticipant = errors.New("user is not a participant of this room")
)
