// internal/models/room_state.go
package models

// RoomPhase is the lifecycle stage of a room. Phases only move forward.
type RoomPhase string

const (
	PhaseLobby         RoomPhase = "lobby"
	PhaseSynchronizing RoomPhase = "synchronizing"
	PhaseRefinement    RoomPhase = "refinement"
	PhasePlaying       RoomPhase = "playing"
)

var phaseOrder = map[RoomPhase]int{
	PhaseLobby:         0,
	PhaseSynchronizing: 1,
	PhaseRefinement:    2,
	PhasePlaying:       3,
}

// Rank returns the position of the phase in the lifecycle, or -1 if unknown.
func (p RoomPhase) Rank() int {
	r, ok := phaseOrder[p]
	if !ok {
		return -1
	}
	return r
}

// RoomState is the aggregate root of the narration core. There is exactly one per room.
type RoomState struct {
	Participants        []Participant   `json:"participants"`
	Ready               map[string]bool `json:"ready"`
	Phase               RoomPhase       `json:"phase"`
	Messages            []GameMessage   `json:"messages"`
	CurrentTurnPlayerID *string         `json:"currentTurnPlayerId"`
	IsAIProcessing      bool            `json:"isAiProcessing"`
	RefinementQuestions []string        `json:"refinementQuestions"`
	RefinementAnswers   []string        `json:"refinementAnswers"`
	IntroGenerated      bool            `json:"introGenerated"`
}

// NewRoomState returns the all-default state a room starts with.
func NewRoomState() *RoomState {
	return &RoomState{
		Participants:        []Participant{},
		Ready:               map[string]bool{},
		Phase:               PhaseLobby,
		Messages:            []GameMessage{},
		RefinementQuestions: []string{},
		RefinementAnswers:   []string{},
	}
}

// Normalize fills nil collections and an empty phase left by partial records.
func (s *RoomState) Normalize() {
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.Ready == nil {
		s.Ready = map[string]bool{}
	}
	if s.Phase == "" {
		s.Phase = PhaseLobby
	}
	if s.Messages == nil {
		s.Messages = []GameMessage{}
	}
	if s.RefinementQuestions == nil {
		s.RefinementQuestions = []string{}
	}
	if s.RefinementAnswers == nil {
		s.RefinementAnswers = []string{}
	}
}

// Clone returns a deep copy so callers can mutate it and discard it on failure.
func (s *RoomState) Clone() *RoomState {
	c := *s
	c.Participants = append([]Participant(nil), s.Participants...)
	c.Ready = make(map[string]bool, len(s.Ready))
	for k, v := range s.Ready {
		c.Ready[k] = v
	}
	c.Messages = append([]GameMessage(nil), s.Messages...)
	c.RefinementQuestions = append([]string(nil), s.RefinementQuestions...)
	c.RefinementAnswers = append([]string(nil), s.RefinementAnswers...)
	if s.CurrentTurnPlayerID != nil {
		id := *s.CurrentTurnPlayerID
		c.CurrentTurnPlayerID = &id
	}
	c.Normalize()
	return &c
}

// CurrentTurn returns the turn holder's id, or "" if nobody holds the turn.
func (s *RoomState) CurrentTurn() string {
	if s.CurrentTurnPlayerID == nil {
		return ""
	}
	return *s.CurrentTurnPlayerID
}

// SetCurrentTurn sets the turn holder; an empty id clears it.
func (s *RoomState) SetCurrentTurn(userID string) {
	if userID == "" {
		s.CurrentTurnPlayerID = nil
		return
	}
	s.CurrentTurnPlayerID = &userID
}

// Participant finds a participant by user id.
func (s *RoomState) Participant(userID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// DisplayName resolves a user's display name, falling back to the raw id.
func (s *RoomState) DisplayName(userID string) string {
	if p, ok := s.Participant(userID); ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return userID
}

// LastAIMessageIndex returns the index of the most recent narrator message, or -1.
func (s *RoomState) LastAIMessageIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsAI() {
			return i
		}
	}
	return -1
}
