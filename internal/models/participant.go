// internal/models/participant.go
package models

// Participant is a member of a room's table. Simulated participants are
// host-created placeholders and never take part in the turn rotation.
type Participant struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"name"`
	IsSimulated bool   `json:"isSimulated,omitempty"`
}

// RosterEntry is the {userId, displayName} pair the narrator needs.
type RosterEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"name"`
}

// Roster projects participants into roster entries, preserving join order.
func Roster(participants []Participant) []RosterEntry {
	roster := make([]RosterEntry, 0, len(participants))
	for _, p := range participants {
		roster = append(roster, RosterEntry{UserID: p.UserID, DisplayName: p.DisplayName})
	}
	return roster
}
