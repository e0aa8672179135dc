// internal/game/status.go
package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/taverna/internal/models"
)

// TurnStatusLabel is the status line shown to viewerID.
func TurnStatusLabel(state *models.RoomState, viewerID string) string {
	if state.IsAIProcessing {
		return "A IA está narrando..."
	}
	current := state.CurrentTurn()
	if current == "" {
		return "Aguardando jogadores..."
	}
	name := participantName(state, current)
	if current == viewerID {
		return fmt.Sprintf("Em turno do Jogador [%s]", name)
	}
	return fmt.Sprintf("Aguardando [%s]...", name)
}

// participantName is the seated participant's display name, or
// DefaultPlayerName when userID is no longer in the room.
func participantName(state *models.RoomState, userID string) string {
	p, ok := state.Participant(userID)
	if !ok || strings.TrimSpace(p.DisplayName) == "" {
		return DefaultPlayerName
	}
	return p.DisplayName
}
