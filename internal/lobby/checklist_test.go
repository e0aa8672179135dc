package lobby

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedCampaign() *models.CampaignConfig {
	c := models.NewCampaignConfig(uuid.New())
	c.RulesAuthority = "D&D 5e, regras do livro básico"
	return c
}

func TestEmptyRoomIsNeverReady(t *testing.T) {
	state := models.NewRoomState()
	cl := ComputeChecklist(state, loadedCampaign(), 1)
	assert.False(t, cl.PlayersReady)
	assert.False(t, CanStart(state, cl, true))
}

func TestPlayersReadyFollowsEveryParticipant(t *testing.T) {
	state := models.NewRoomState()
	AddParticipant(state, models.Participant{UserID: "A", DisplayName: "Alice"})
	AddParticipant(state, models.Participant{UserID: "B", DisplayName: "Bob"})
	MarkReady(state, "A", true)

	cl := ComputeChecklist(state, loadedCampaign(), 1)
	assert.False(t, cl.PlayersReady)
	assert.Equal(t, []string{"Bob"}, PendingReadyNames(state))

	MarkReady(state, "B", true)
	cl = ComputeChecklist(state, loadedCampaign(), 1)
	assert.True(t, cl.PlayersReady)
	assert.Empty(t, PendingReadyNames(state))
	assert.True(t, CanStart(state, cl, true))
}

func TestCanStartRequiresEveryCondition(t *testing.T) {
	state := models.NewRoomState()
	AddParticipant(state, models.Participant{UserID: "A", DisplayName: "Alice"})
	MarkReady(state, "A", true)

	t.Run("campaign not loaded", func(t *testing.T) {
		cl := ComputeChecklist(state, models.NewCampaignConfig(uuid.New()), 1)
		assert.False(t, cl.CampaignLoaded)
		assert.False(t, CanStart(state, cl, true))
	})
	t.Run("nil campaign", func(t *testing.T) {
		cl := ComputeChecklist(state, nil, 1)
		assert.False(t, cl.CampaignLoaded)
	})
	t.Run("uploaded file counts as loaded", func(t *testing.T) {
		c := models.NewCampaignConfig(uuid.New())
		c.UploadedFileName = "livro.pdf"
		assert.True(t, ComputeChecklist(state, c, 1).CampaignLoaded)
	})
	t.Run("no approved characters", func(t *testing.T) {
		cl := ComputeChecklist(state, loadedCampaign(), 0)
		assert.False(t, cl.CharactersValid)
		assert.False(t, CanStart(state, cl, true))
	})
	t.Run("not host", func(t *testing.T) {
		cl := ComputeChecklist(state, loadedCampaign(), 1)
		assert.False(t, CanStart(state, cl, false))
	})
	t.Run("wrong phase", func(t *testing.T) {
		s := state.Clone()
		s.Phase = models.PhaseRefinement
		cl := ComputeChecklist(s, loadedCampaign(), 1)
		assert.False(t, CanStart(s, cl, true))
	})
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	state := models.NewRoomState()
	require.True(t, AddParticipant(state, models.Participant{UserID: "A", DisplayName: "Alice"}))
	MarkReady(state, "A", true)
	assert.False(t, AddParticipant(state, models.Participant{UserID: "A", DisplayName: "Alice again"}))
	assert.Len(t, state.Participants, 1)
	assert.True(t, state.Ready["A"], "rejoining must not reset readiness")
}

func TestSimulatedParticipantsGetDistinctIDs(t *testing.T) {
	state := models.NewRoomState()
	s1 := AddSimulatedParticipant(state)
	s2 := AddSimulatedParticipant(state)
	assert.NotEqual(t, s1.UserID, s2.UserID)
	assert.True(t, s1.IsSimulated)
	assert.Equal(t, SimulatedName, s2.DisplayName)
	assert.Len(t, state.Participants, 2)
}

func TestRemoveParticipant(t *testing.T) {
	state := models.NewRoomState()
	AddParticipant(state, models.Participant{UserID: "A"})
	AddParticipant(state, models.Participant{UserID: "B"})
	assert.True(t, RemoveParticipant(state, "A"))
	assert.False(t, RemoveParticipant(state, "A"))
	require.Len(t, state.Participants, 1)
	assert.Equal(t, "B", state.Participants[0].UserID)
	_, ok := state.Ready["A"]
	assert.False(t, ok)
}
