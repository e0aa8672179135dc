// internal/models/message.go
package models

// MessageKind classifies an entry in the room transcript.
type MessageKind string

const (
	KindNarrative  MessageKind = "narrative"
	KindAction     MessageKind = "action"
	KindConsult    MessageKind = "consult"
	KindInteract   MessageKind = "interact"
	KindRefinement MessageKind = "refinement"
)

// FromAI is the sender sentinel for narrator-authored messages.
const FromAI = "ai"

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindNarrative, KindAction, KindConsult, KindInteract, KindRefinement:
		return true
	}
	return false
}

// IsPlayerInput reports whether k may be submitted by the turn holder.
func (k MessageKind) IsPlayerInput() bool {
	return k == KindAction || k == KindConsult || k == KindInteract
}

// GameMessage is one immutable entry of the append-only room log.
type GameMessage struct {
	ID               string      `json:"id"`
	Kind             MessageKind `json:"kind"`
	From             string      `json:"from"`
	Content          string      `json:"content"`
	TargetPlayerID   string      `json:"targetPlayerId,omitempty"`
	TargetPlayerName string      `json:"targetPlayerName,omitempty"`
	Timestamp        int64       `json:"timestamp"` // epoch millis
}

// IsAI reports whether the message was authored by the narrator.
func (m GameMessage) IsAI() bool {
	return m.From == FromAI
}

// ContextRole is the role of one instruction sent to a language model.
type ContextRole string

const (
	RoleSystem    ContextRole = "system"
	RoleUser      ContextRole = "user"
	RoleAssistant ContextRole = "assistant"
)

// ContextMessage is an ephemeral narrator instruction, rebuilt for every model call.
type ContextMessage struct {
	Role    ContextRole `json:"role"`
	Content string      `json:"content"`
}
