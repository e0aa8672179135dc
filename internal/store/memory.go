// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.Mutex
	rooms      map[uuid.UUID]models.Room
	codes      map[string]uuid.UUID
	states     map[uuid.UUID]*models.RoomState
	campaigns  map[uuid.UUID]models.CampaignConfig
	characters map[uuid.UUID]models.Character
}

// NewMemoryStore initializes an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[uuid.UUID]models.Room),
		codes:      make(map[string]uuid.UUID),
		states:     make(map[uuid.UUID]*models.RoomState),
		campaigns:  make(map[uuid.UUID]models.CampaignConfig),
		characters: make(map[uuid.UUID]models.Character),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return ErrCodeTaken
	}
	s.rooms[room.ID] = *room
	s.codes[room.Code] = room.ID
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	r := s.rooms[id]
	return &r, nil
}

func (s *MemoryStore) ListRoomsByHost(_ context.Context, hostID string) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Room{}
	for _, r := range s.rooms {
		if r.HostID == hostID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	delete(s.codes, r.Code)
	delete(s.states, id)
	delete(s.campaigns, id)
	for cid, c := range s.characters {
		if c.RoomID == id {
			delete(s.characters, cid)
		}
	}
	return nil
}

func (s *MemoryStore) LoadState(_ context.Context, roomID uuid.UUID) (*models.RoomState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[roomID]
	if !ok {
		return models.NewRoomState(), nil
	}
	return st.Clone(), nil
}

func (s *MemoryStore) SaveState(_ context.Context, roomID uuid.UUID, state *models.RoomState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[roomID] = state.Clone()
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, roomID uuid.UUID) (*models.CampaignConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.campaigns[roomID]
	if !ok {
		return models.NewCampaignConfig(roomID), nil
	}
	return &cfg, nil
}

func (s *MemoryStore) SaveCampaign(_ context.Context, cfg *models.CampaignConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[cfg.RoomID] = *cfg
	return nil
}

func (s *MemoryStore) ListCharacters(_ context.Context, roomID uuid.UUID) ([]models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Character{}
	for _, c := range s.characters {
		if c.RoomID == roomID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) GetCharacter(_ context.Context, id uuid.UUID) (*models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) SaveCharacter(_ context.Context, c *models.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[c.RoomID]; !ok {
		return ErrNotFound
	}
	s.characters[c.ID] = *c
	return nil
}
