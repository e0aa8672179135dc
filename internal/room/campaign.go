// internal/room/campaign.go
package room

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/assets"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/jason-s-yu/taverna/internal/provider"
)

const maxRulesLength = 20000

// CampaignUpdate carries the fields a host may change. Nil fields are left alone.
type CampaignUpdate struct {
	RulesAuthority         *string            `json:"rulesAuthority"`
	AICanAskClarifications *bool              `json:"aiCanAskClarifications"`
	AI                     *models.AISettings `json:"ai"`
}

// hostRoom loads the room and checks that actorID hosts it.
func (s *Service) hostRoom(ctx context.Context, roomID uuid.UUID, actorID string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actorID) {
		return nil, game.ErrUnauthorized
	}
	return room, nil
}

// UpdateCampaign applies a host edit to the campaign config.
func (s *Service) UpdateCampaign(ctx context.Context, roomID uuid.UUID, actorID string, upd CampaignUpdate) (*models.CampaignConfig, error) {
	if upd.RulesAuthority != nil && len(*upd.RulesAuthority) > maxRulesLength {
		return nil, fmt.Errorf("%w: rules text too long", game.ErrValidation)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.hostRoom(ctx, roomID, actorID); err != nil {
		return nil, err
	}
	cfg, err := s.store.GetCampaign(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if upd.RulesAuthority != nil {
		cfg.RulesAuthority = *upd.RulesAuthority
	}
	if upd.AICanAskClarifications != nil {
		cfg.AICanAskClarifications = *upd.AICanAskClarifications
	}
	if upd.AI != nil {
		cfg.AI = provider.ResolveSettings(*upd.AI)
	}
	if err := s.store.SaveCampaign(ctx, cfg); err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventCampaignUpdated, roomID, actorID, map[string]any{"loaded": cfg.Loaded()})
	return cfg, nil
}

// UploadCampaignFile stores the rulebook under rooms/<id>/<file> and records its name.
func (s *Service) UploadCampaignFile(ctx context.Context, roomID uuid.UUID, actorID, fileName string, r io.Reader, size int64, contentType string) (*models.CampaignConfig, error) {
	key, err := assets.RoomKey(roomID, fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrValidation, err)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.hostRoom(ctx, roomID, actorID); err != nil {
		return nil, err
	}
	if err := s.blobs.Write(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}
	cfg, err := s.store.GetCampaign(ctx, roomID)
	if err != nil {
		return nil, err
	}
	cfg.UploadedFileName = key[strings.LastIndex(key, "/")+1:]
	if err := s.store.SaveCampaign(ctx, cfg); err != nil {
		return nil, err
	}
	s.log(roomID, actorID).WithField("file", cfg.UploadedFileName).Info("campaign file uploaded")
	s.emit(ctx, models.EventCampaignUpdated, roomID, actorID, map[string]any{"file": cfg.UploadedFileName})
	return cfg, nil
}

// SetAPIKey registers the model key used for the room. An empty key clears it.
// The key is kept in memory only.
func (s *Service) SetAPIKey(ctx context.Context, roomID uuid.UUID, actorID, key string) error {
	if _, err := s.hostRoom(ctx, roomID, actorID); err != nil {
		return err
	}
	s.keys.Set(roomID, strings.TrimSpace(key))
	return nil
}

// SubmitCharacter records a character sheet for who, replacing any earlier
// unapproved one. r may be nil when only the file name is recorded.
func (s *Service) SubmitCharacter(ctx context.Context, roomID uuid.UUID, who auth.Identity, fileName string, r io.Reader, size int64, contentType string) (*models.Character, error) {
	key, err := assets.RoomKey(roomID, fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrValidation, err)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	state, err := s.store.LoadState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, ok := state.Participant(who.UserID); !ok {
		return nil, game.ErrNotParticipant
	}
	if r != nil {
		if err := s.blobs.Write(ctx, key, r, size, contentType); err != nil {
			return nil, err
		}
	}

	chars, err := s.store.ListCharacters(ctx, roomID)
	if err != nil {
		return nil, err
	}
	c := &models.Character{
		ID:            uuid.New(),
		RoomID:        roomID,
		UserID:        who.UserID,
		UserName:      state.DisplayName(who.UserID),
		SheetFileName: key[strings.LastIndex(key, "/")+1:],
		CreatedAt:     s.now().UnixMilli(),
	}
	for _, existing := range chars {
		if existing.UserID == who.UserID && !existing.Approved {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			break
		}
	}
	if err := s.store.SaveCharacter(ctx, c); err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventCharacterUpdated, roomID, who.UserID, map[string]any{"character": c.ID.String(), "approved": false})
	return c, nil
}

// ApproveCharacter sets the approval of a sheet. Host only.
func (s *Service) ApproveCharacter(ctx context.Context, roomID uuid.UUID, actorID string, characterID uuid.UUID, approved bool) (*models.Character, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.hostRoom(ctx, roomID, actorID); err != nil {
		return nil, err
	}
	c, err := s.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if c.RoomID != roomID {
		return nil, fmt.Errorf("%w: character belongs to another room", game.ErrValidation)
	}
	c.Approved = approved
	if err := s.store.SaveCharacter(ctx, c); err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventCharacterUpdated, roomID, actorID, map[string]any{"character": c.ID.String(), "approved": approved})
	return c, nil
}
