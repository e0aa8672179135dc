// internal/game/readiness.go
package game

import (
	"github.com/jason-s-yu/taverna/internal/lobby"
	"github.com/jason-s-yu/taverna/internal/models"
)

// SetReady records readiness for targetID. Participants toggle themselves;
// the host may also toggle simulated participants.
func SetReady(state *models.RoomState, actorID, targetID string, ready, actorIsHost bool) error {
	if targetID == "" {
		targetID = actorID
	}
	target, ok := state.Participant(targetID)
	if !ok {
		return ErrNotParticipant
	}
	if targetID != actorID && !(actorIsHost && target.IsSimulated) {
		return ErrUnauthorized
	}
	lobby.MarkReady(state, targetID, ready)
	return nil
}

// ToggleSimulatedReady flips a simulated participant's readiness. Host only.
func ToggleSimulatedReady(state *models.RoomState, isHost bool, participantID string) error {
	if !isHost {
		return ErrUnauthorized
	}
	p, ok := state.Participant(participantID)
	if !ok {
		return ErrNotParticipant
	}
	if !p.IsSimulated {
		return ErrValidation
	}
	lobby.MarkReady(state, participantID, !state.Ready[participantID])
	return nil
}

// AddSimulated seats a new simulated participant. Host only, lobby only.
func AddSimulated(state *models.RoomState, isHost bool) (models.Participant, error) {
	if !isHost {
		return models.Participant{}, ErrUnauthorized
	}
	if state.Phase != models.PhaseLobby {
		return models.Participant{}, ErrInvalidPhase
	}
	return lobby.AddSimulatedParticipant(state), nil
}
