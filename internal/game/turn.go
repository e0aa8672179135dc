// internal/game/turn.go
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/taverna/internal/idgen"
	"github.com/jason-s-yu/taverna/internal/models"
)

// MaxMessageLength bounds a single player submission.
const MaxMessageLength = 4000

// CanSubmit reports whether userID may append player input right now.
func CanSubmit(state *models.RoomState, userID string) bool {
	return !state.IsAIProcessing && userID != "" && state.CurrentTurn() == userID
}

// SubmitMessage appends a player message from the turn holder. It never
// advances the turn; only narrator resolution does.
func SubmitMessage(state *models.RoomState, userID string, kind models.MessageKind, content string, now time.Time) (models.GameMessage, error) {
	content = strings.TrimSpace(content)
	if !kind.IsPlayerInput() {
		return models.GameMessage{}, fmt.Errorf("%w: kind %q cannot be submitted by a player", ErrValidation, kind)
	}
	if content == "" {
		return models.GameMessage{}, fmt.Errorf("%w: empty message", ErrValidation)
	}
	if len(content) > MaxMessageLength {
		return models.GameMessage{}, fmt.Errorf("%w: message longer than %d bytes", ErrValidation, MaxMessageLength)
	}
	if state.IsAIProcessing {
		return models.GameMessage{}, ErrAiBusy
	}
	if !CanSubmit(state, userID) {
		return models.GameMessage{}, ErrTurnViolation
	}

	msg := models.GameMessage{
		ID:        idgen.MessageID(now),
		Kind:      kind,
		From:      userID,
		Content:   content,
		Timestamp: now.UnixMilli(),
	}
	state.Messages = append(state.Messages, msg)
	return msg, nil
}

// NextEligibleParticipant returns the real participant after currentUserID in
// join order, wrapping around. An unknown current id yields the first real
// participant; no real participants yields "".
func NextEligibleParticipant(participants []models.Participant, currentUserID string) string {
	real := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if !p.IsSimulated {
			real = append(real, p)
		}
	}
	if len(real) == 0 {
		return ""
	}
	idx := -1
	for i, p := range real {
		if p.UserID == currentUserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return real[0].UserID
	}
	return real[(idx+1)%len(real)].UserID
}

// FirstRealParticipant returns the first non-simulated participant, if any.
func FirstRealParticipant(participants []models.Participant) (models.Participant, bool) {
	for _, p := range participants {
		if !p.IsSimulated {
			return p, true
		}
	}
	return models.Participant{}, false
}

// TurnMessages returns what userID contributed since the most recent narrator
// message, or since the start of the log if the narrator has not spoken.
func TurnMessages(state *models.RoomState, userID string) []models.GameMessage {
	since := state.LastAIMessageIndex() + 1
	var out []models.GameMessage
	for _, m := range state.Messages[since:] {
		if m.From == userID {
			out = append(out, m)
		}
	}
	return out
}

// TurnSnapshot captures what the narrator needs once a turn is being finalized.
type TurnSnapshot struct {
	TurnHolder  string
	PlayerName  string
	LastContent string
	TurnInput   []models.GameMessage
	Transcript  []models.GameMessage
	Roster      []models.RosterEntry
}

// BeginFinalize validates the request and raises the narrator-busy flag.
// The caller must eventually call CompleteFinalize or AbortFinalize.
func BeginFinalize(state *models.RoomState, requesterID string) (TurnSnapshot, error) {
	if state.IsAIProcessing {
		return TurnSnapshot{}, ErrAiBusy
	}
	current := state.CurrentTurn()
	if current == "" || requesterID != current {
		return TurnSnapshot{}, ErrNotYourTurn
	}

	input := TurnMessages(state, current)
	last := ""
	if len(input) > 0 {
		last = input[len(input)-1].Content
	}

	state.IsAIProcessing = true
	return TurnSnapshot{
		TurnHolder:  current,
		PlayerName:  participantName(state, current),
		LastContent: last,
		TurnInput:   input,
		Transcript:  append([]models.GameMessage(nil), state.Messages...),
		Roster:      models.Roster(state.Participants),
	}, nil
}

// CompleteFinalize appends the narration, hands the turn to the next real
// participant after turnHolder and clears the busy flag. The next participant
// is computed from the state as it is now, so joins during narration count.
func CompleteFinalize(state *models.RoomState, turnHolder, narrative string, now time.Time) models.GameMessage {
	next := NextEligibleParticipant(state.Participants, turnHolder)
	msg := models.GameMessage{
		ID:        idgen.MessageID(now),
		Kind:      models.KindNarrative,
		From:      models.FromAI,
		Content:   narrative,
		Timestamp: now.UnixMilli(),
	}
	if next != "" {
		msg.TargetPlayerID = next
		msg.TargetPlayerName = state.DisplayName(next)
	}
	state.Messages = append(state.Messages, msg)
	state.SetCurrentTurn(next)
	state.IsAIProcessing = false
	return msg
}

// AbortFinalize clears the busy flag without touching the transcript.
func AbortFinalize(state *models.RoomState) {
	state.IsAIProcessing = false
}

// PassTurn is the host override: the turn goes to targetUserID unconditionally,
// simulated participants included. It is refused while the narrator is busy so
// an in-flight resolution cannot be overwritten.
func PassTurn(state *models.RoomState, requesterIsHost bool, targetUserID string) error {
	if !requesterIsHost {
		return ErrUnauthorized
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return fmt.Errorf("%w: missing target", ErrValidation)
	}
	if state.IsAIProcessing {
		return ErrAiBusy
	}
	state.SetCurrentTurn(targetUserID)
	return nil
}
