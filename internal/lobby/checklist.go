// internal/lobby/checklist.go
package lobby

import "github.com/jason-s-yu/taverna/internal/models"

// Checklist is the derived set of preconditions for leaving the lobby.
// It is never stored; recompute it whenever one of its inputs changes.
type Checklist struct {
	BackendOK       bool `json:"backendOk"`
	CampaignLoaded  bool `json:"campaignLoaded"`
	CharactersValid bool `json:"charactersValid"`
	PlayersReady    bool `json:"playersReady"`
}

// Complete reports whether every item is satisfied.
func (c Checklist) Complete() bool {
	return c.BackendOK && c.CampaignLoaded && c.CharactersValid && c.PlayersReady
}

// ComputeChecklist derives the lobby checklist. It has no side effects.
func ComputeChecklist(state *models.RoomState, campaign *models.CampaignConfig, approvedCharacters int) Checklist {
	return Checklist{
		BackendOK:       true,
		CampaignLoaded:  campaign.Loaded(),
		CharactersValid: approvedCharacters > 0,
		PlayersReady:    AreAllReady(state),
	}
}

// CanStart reports whether the host may move the room out of the lobby.
func CanStart(state *models.RoomState, checklist Checklist, isHost bool) bool {
	return isHost && state.Phase == models.PhaseLobby && checklist.Complete()
}
