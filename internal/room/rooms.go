// internal/room/rooms.go
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/assets"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/idgen"
	"github.com/jason-s-yu/taverna/internal/lobby"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/jason-s-yu/taverna/internal/store"
)

const (
	maxRoomNameLength = 120
	joinCodeAttempts  = 5
)

func participantFor(who auth.Identity) models.Participant {
	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = game.DefaultPlayerName
	}
	return models.Participant{ID: who.UserID, UserID: who.UserID, DisplayName: name}
}

// CreateRoom creates a room hosted by host, who is seated as its first participant.
func (s *Service) CreateRoom(ctx context.Context, host auth.Identity, name string) (*models.Room, error) {
	if host.UserID == "" {
		return nil, game.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultRoomName
	}
	if len(name) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: room name too long", game.ErrValidation)
	}

	room := &models.Room{
		ID:        uuid.New(),
		Name:      name,
		HostID:    host.UserID,
		CreatedAt: s.now().UnixMilli(),
	}
	var err error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		if room.Code, err = idgen.JoinCode(); err != nil {
			return nil, err
		}
		if err = s.store.CreateRoom(ctx, room); !errors.Is(err, store.ErrCodeTaken) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("creating room: %w", err)
	}

	state := models.NewRoomState()
	lobby.AddParticipant(state, participantFor(host))
	if err := s.store.SaveState(ctx, room.ID, state); err != nil {
		return nil, err
	}

	s.log(room.ID, host.UserID).WithField("code", room.Code).Info("room created")
	s.emit(ctx, models.EventRoomCreated, room.ID, host.UserID, map[string]any{"code": room.Code, "name": room.Name})
	return room, nil
}

// Join seats who in the room. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, roomID uuid.UUID, who auth.Identity) error {
	if who.UserID == "" {
		return game.ErrUnauthorized
	}
	_, _, err := s.mutate(ctx, roomID, who.UserID, func(_ *models.Room, st *models.RoomState) (change, error) {
		p := participantFor(who)
		if !lobby.AddParticipant(st, p) {
			return change{}, nil
		}
		return change{Type: models.EventParticipantJoined, Payload: map[string]any{"name": p.DisplayName}}, nil
	})
	return err
}

// JoinByCode resolves a join code and seats who in that room.
func (s *Service) JoinByCode(ctx context.Context, code string, who auth.Identity) (*models.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", game.ErrValidation)
	}
	room, err := s.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.Join(ctx, room.ID, who); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave removes userID from the room. A departing turn holder keeps the turn
// until it is finalized or the host passes it.
func (s *Service) Leave(ctx context.Context, roomID uuid.UUID, userID string) error {
	_, _, err := s.mutate(ctx, roomID, userID, func(_ *models.Room, st *models.RoomState) (change, error) {
		if !lobby.RemoveParticipant(st, userID) {
			return change{}, game.ErrNotParticipant
		}
		return change{Type: models.EventParticipantLeft}, nil
	})
	return err
}

// DeleteRoom removes the room and everything stored for it. Host only.
func (s *Service) DeleteRoom(ctx context.Context, roomID uuid.UUID, actorID string) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsHost(actorID) {
		return game.ErrUnauthorized
	}
	if err := s.blobs.DeletePrefix(ctx, assets.RoomPrefix(roomID)); err != nil {
		s.log(roomID, actorID).WithError(err).Warn("failed to delete room files")
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	s.keys.Set(roomID, "")
	s.log(roomID, actorID).Info("room deleted")
	s.emit(ctx, models.EventRoomDeleted, roomID, actorID, nil)
	return nil
}

// ListHostedRooms returns the rooms hosted by hostID, newest first.
func (s *Service) ListHostedRooms(ctx context.Context, hostID string) ([]models.Room, error) {
	return s.store.ListRoomsByHost(ctx, hostID)
}

// View is a room as seen by one viewer.
type View struct {
	Room         *models.Room           `json:"room"`
	State        *models.RoomState      `json:"state"`
	Campaign     *models.CampaignConfig `json:"campaign"`
	Characters   []models.Character     `json:"characters"`
	Checklist    lobby.Checklist        `json:"checklist"`
	CanStart     bool                   `json:"canStart"`
	PendingReady []string               `json:"pendingReady"`
	TurnStatus   string                 `json:"turnStatus"`
	CanSubmit    bool                   `json:"canSubmit"`
	IsHost       bool                   `json:"isHost"`
	HasAPIKey    bool                   `json:"hasApiKey"`
}

// Snapshot assembles the view of a room for viewerID.
func (s *Service) Snapshot(ctx context.Context, roomID uuid.UUID, viewerID string) (*View, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	state, err := s.store.LoadState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	campaign, err := s.store.GetCampaign(ctx, roomID)
	if err != nil {
		return nil, err
	}
	chars, err := s.store.ListCharacters(ctx, roomID)
	if err != nil {
		return nil, err
	}

	checklist := lobby.ComputeChecklist(state, campaign, models.CountApproved(chars))
	isHost := room.IsHost(viewerID)
	return &View{
		Room:         room,
		State:        state,
		Campaign:     campaign,
		Characters:   chars,
		Checklist:    checklist,
		CanStart:     lobby.CanStart(state, checklist, isHost),
		PendingReady: lobby.PendingReadyNames(state),
		TurnStatus:   game.TurnStatusLabel(state, viewerID),
		CanSubmit:    game.CanSubmit(state, viewerID),
		IsHost:       isHost,
		HasAPIKey:    s.keys.Has(roomID) || s.opts.ServerAPIKey != "",
	}, nil
}
