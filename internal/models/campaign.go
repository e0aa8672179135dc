// internal/models/campaign.go
package models

import (
	"strings"

	"github.com/google/uuid"
)

// AISettings selects the narration vendor and model for a room. The API key is
// deliberately absent: secrets are never persisted with the campaign.
type AISettings struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// CampaignConfig is the host-owned configuration of a room's campaign.
type CampaignConfig struct {
	RoomID                 uuid.UUID  `json:"roomId"`
	UploadedFileName       string     `json:"uploadedFileName,omitempty"`
	AICanAskClarifications bool       `json:"aiCanAskClarifications"`
	RulesAuthority         string     `json:"rulesAuthority"`
	AI                     AISettings `json:"ai"`
}

// NewCampaignConfig returns the defaults for a fresh room.
func NewCampaignConfig(roomID uuid.UUID) *CampaignConfig {
	return &CampaignConfig{
		RoomID:                 roomID,
		AICanAskClarifications: true,
	}
}

// Loaded reports whether the campaign has rules text or an uploaded rulebook.
func (c *CampaignConfig) Loaded() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.RulesAuthority) != "" || c.UploadedFileName != ""
}

// Character is a character sheet submitted by a player and approved by the host.
type Character struct {
	ID            uuid.UUID `json:"id"`
	RoomID        uuid.UUID `json:"roomId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	SheetFileName string    `json:"sheetFileName"`
	Approved      bool      `json:"approved"`
	CreatedAt     int64     `json:"createdAt"`
}

// CountApproved returns how many sheets in chars have been approved.
func CountApproved(chars []Character) int {
	n := 0
	for _, c := range chars {
		if c.Approved {
			n++
		}
	}
	return n
}
