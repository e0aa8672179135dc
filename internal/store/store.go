// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
)

var (
	// ErrNotFound is returned when a room or character does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCodeTaken is returned when a join code collides with an existing room.
	ErrCodeTaken = errors.New("join code already in use")
)

// Store persists rooms and everything keyed by room id. Reads return copies:
// mutating a returned value has no effect until it is saved.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	ListRoomsByHost(ctx context.Context, hostID string) ([]models.Room, error)
	// DeleteRoom removes the room with its state, campaign and characters.
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	// LoadState returns the room state, or a fresh default state if none was saved.
	LoadState(ctx context.Context, roomID uuid.UUID) (*models.RoomState, error)
	SaveState(ctx context.Context, roomID uuid.UUID, state *models.RoomState) error

	// GetCampaign returns the campaign config, or the defaults if none was saved.
	GetCampaign(ctx context.Context, roomID uuid.UUID) (*models.CampaignConfig, error)
	SaveCampaign(ctx context.Context, cfg *models.CampaignConfig) error

	ListCharacters(ctx context.Context, roomID uuid.UUID) ([]models.Character, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error)
	// SaveCharacter inserts or replaces a character by id.
	SaveCharacter(ctx context.Context, c *models.Character) error
}
