// internal/models/room.go
package models

import "github.com/google/uuid"

// DefaultRoomName is used when the host does not name the campaign.
const DefaultRoomName = "Nova Campanha"

// Room is one campaign session, joined through a short human-shareable code.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	HostID    string    `json:"hostId"`
	CreatedAt int64     `json:"createdAt"`
}

// IsHost reports whether userID administers the room.
func (r *Room) IsHost(userID string) bool {
	return r.HostID != "" && r.HostID == userID
}
