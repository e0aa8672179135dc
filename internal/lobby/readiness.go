// internal/lobby/readiness.go
package lobby

import (
	"fmt"

	"github.com/jason-s-yu/taverna/internal/models"
)

// SimulatedName is the display name given to host-created test participants.
const SimulatedName = "Jogador Teste"

// AddParticipant appends p in join order. Participants are unique by user id;
// a repeated join is a no-op and returns false.
func AddParticipant(state *models.RoomState, p models.Participant) bool {
	if _, exists := state.Participant(p.UserID); exists {
		return false
	}
	if p.ID == "" {
		p.ID = p.UserID
	}
	state.Participants = append(state.Participants, p)
	if _, ok := state.Ready[p.UserID]; !ok {
		state.Ready[p.UserID] = false
	}
	return true
}

// RemoveParticipant drops a participant and their readiness entry.
func RemoveParticipant(state *models.RoomState, userID string) bool {
	for i, p := range state.Participants {
		if p.UserID == userID {
			state.Participants = append(state.Participants[:i:i], state.Participants[i+1:]...)
			delete(state.Ready, userID)
			return true
		}
	}
	return false
}

// AddSimulatedParticipant appends a placeholder participant with a fresh sim id.
func AddSimulatedParticipant(state *models.RoomState) models.Participant {
	n := 1
	for _, p := range state.Participants {
		if p.IsSimulated {
			n++
		}
	}
	id := fmt.Sprintf("sim-%d", n)
	for {
		if _, taken := state.Participant(id); !taken {
			break
		}
		n++
		id = fmt.Sprintf("sim-%d", n)
	}
	p := models.Participant{ID: id, UserID: id, DisplayName: SimulatedName, IsSimulated: true}
	AddParticipant(state, p)
	return p
}

// MarkReady sets a participant's readiness. Returns false if the user is not
// a participant or nothing changed.
func MarkReady(state *models.RoomState, userID string, ready bool) bool {
	if _, ok := state.Participant(userID); !ok {
		return false
	}
	if state.Ready[userID] == ready {
		return false
	}
	state.Ready[userID] = ready
	return true
}

// AreAllReady is true when there is at least one participant and all of them
// are ready. An empty room is never ready.
func AreAllReady(state *models.RoomState) bool {
	if len(state.Participants) == 0 {
		return false
	}
	for _, p := range state.Participants {
		if !state.Ready[p.UserID] {
			return false
		}
	}
	return true
}

// PendingReadyNames lists the display names of participants who are not ready yet.
func PendingReadyNames(state *models.RoomState) []string {
	names := []string{}
	for _, p := range state.Participants {
		if !state.Ready[p.UserID] {
			names = append(names, p.DisplayName)
		}
	}
	return names
}
