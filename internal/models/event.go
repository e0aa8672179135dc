// internal/models/event.go
package models

import "github.com/google/uuid"

// RoomEventType names an accepted room mutation.
type RoomEventType string

const (
	EventRoomCreated        RoomEventType = "room_created"
	EventRoomDeleted        RoomEventType = "room_deleted"
	EventParticipantJoined  RoomEventType = "participant_joined"
	EventParticipantLeft    RoomEventType = "participant_left"
	EventReadyChanged       RoomEventType = "ready_changed"
	EventMessageAppended    RoomEventType = "message_appended"
	EventNarratorStarted    RoomEventType = "narrator_started"
	EventTurnFinalized      RoomEventType = "turn_finalized"
	EventTurnPassed         RoomEventType = "turn_passed"
	EventPhaseChanged       RoomEventType = "phase_changed"
	EventRefinementAnswered RoomEventType = "refinement_answered"
	EventCampaignUpdated    RoomEventType = "campaign_updated"
	EventCharacterUpdated   RoomEventType = "character_updated"
)

// RoomEvent records one accepted mutation. It is fanned out to live
// subscribers and to the historian queue.
type RoomEvent struct {
	Type      RoomEventType  `json:"type"`
	RoomID    uuid.UUID      `json:"roomId"`
	ActorID   string         `json:"actorId"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"timestamp"` // epoch millis
}
