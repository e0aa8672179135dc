// internal/game/phase.go
package game

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/taverna/internal/idgen"
	"github.com/jason-s-yu/taverna/internal/lobby"
	"github.com/jason-s-yu/taverna/internal/models"
)

// MaxRefinementAnswers caps how far the answer list may grow.
const MaxRefinementAnswers = 64

// advancePhase moves the room exactly one step forward.
func advancePhase(state *models.RoomState, from, to models.RoomPhase) error {
	if state.Phase != from || to.Rank() != from.Rank()+1 {
		return fmt.Errorf("%w: room is %s, expected %s", ErrInvalidPhase, state.Phase, from)
	}
	state.Phase = to
	return nil
}

// StartCampaign moves a ready lobby into synchronization. Only the host may
// start, and only with a complete checklist.
func StartCampaign(state *models.RoomState, checklist lobby.Checklist, isHost bool) error {
	if !isHost {
		return ErrUnauthorized
	}
	if state.Phase != models.PhaseLobby {
		return fmt.Errorf("%w: room already started", ErrInvalidPhase)
	}
	if !checklist.Complete() {
		return ErrChecklistIncomplete
	}
	return advancePhase(state, models.PhaseLobby, models.PhaseSynchronizing)
}

// EnterRefinement ends synchronization, publishing the clarifying questions
// and clearing any previous answers.
func EnterRefinement(state *models.RoomState, questions []string) error {
	if err := advancePhase(state, models.PhaseSynchronizing, models.PhaseRefinement); err != nil {
		return err
	}
	state.RefinementQuestions = append([]string{}, questions...)
	state.RefinementAnswers = []string{}
	return nil
}

// SetRefinementAnswer stores a participant's answer at index, growing the
// answer list with empty strings as needed.
func SetRefinementAnswer(state *models.RoomState, userID string, index int, answer string) error {
	if state.Phase != models.PhaseRefinement {
		return fmt.Errorf("%w: answers are only accepted during refinement", ErrInvalidPhase)
	}
	if _, ok := state.Participant(userID); !ok {
		return ErrNotParticipant
	}
	if index < 0 || index >= MaxRefinementAnswers {
		return fmt.Errorf("%w: answer index %d out of range", ErrValidation, index)
	}
	for len(state.RefinementAnswers) <= index {
		state.RefinementAnswers = append(state.RefinementAnswers, "")
	}
	state.RefinementAnswers[index] = answer
	return nil
}

// ConfirmRefinement starts play. The intro narration is appended exactly once
// and the first real participant receives the turn.
func ConfirmRefinement(state *models.RoomState, isHost bool, intro string, now time.Time) (models.GameMessage, error) {
	if !isHost {
		return models.GameMessage{}, ErrUnauthorized
	}
	if err := advancePhase(state, models.PhaseRefinement, models.PhasePlaying); err != nil {
		return models.GameMessage{}, err
	}

	msg := models.GameMessage{
		ID:        idgen.MessageID(now),
		Kind:      models.KindNarrative,
		From:      models.FromAI,
		Content:   intro,
		Timestamp: now.UnixMilli(),
	}
	first, ok := FirstRealParticipant(state.Participants)
	if ok {
		msg.TargetPlayerID = first.UserID
		msg.TargetPlayerName = participantName(state, first.UserID)
	}
	if !state.IntroGenerated {
		state.Messages = append(state.Messages, msg)
		state.IntroGenerated = true
	}
	state.SetCurrentTurn(first.UserID)
	return msg, nil
}
