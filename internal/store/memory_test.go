// internal/store/memory_test.go
package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(code, host string, createdAt int64) *models.Room {
	return &models.Room{ID: uuid.New(), Code: code, Name: "Mesa", HostID: host, CreatedAt: createdAt}
}

func TestMemoryRooms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	r1 := newTestRoom("123456", "alice", 1)
	r2 := newTestRoom("654321", "alice", 2)
	require.NoError(t, s.CreateRoom(ctx, r1))
	require.NoError(t, s.CreateRoom(ctx, r2))
	assert.ErrorIs(t, s.CreateRoom(ctx, newTestRoom("123456", "bob", 3)), ErrCodeTaken)

	got, err := s.GetRoomByCode(ctx, "654321")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, got.ID)

	_, err = s.GetRoom(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListRoomsByHost(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r2.ID, list[0].ID, "newest first")

	list, err = s.ListRoomsByHost(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStateIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := uuid.New()

	st, err := s.LoadState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseLobby, st.Phase, "missing state loads as defaults")

	st.Participants = append(st.Participants, models.Participant{UserID: "alice"})
	st.Ready["alice"] = true
	require.NoError(t, s.SaveState(ctx, id, st))

	st.Ready["alice"] = false
	st.Phase = models.PhasePlaying

	loaded, err := s.LoadState(ctx, id)
	require.NoError(t, err)
	assert.True(t, loaded.Ready["alice"], "saved copy is not aliased by the caller")
	assert.Equal(t, models.PhaseLobby, loaded.Phase)

	loaded.Messages = append(loaded.Messages, models.GameMessage{ID: "x"})
	again, err := s.LoadState(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, again.Messages)
}

func TestMemoryCampaignAndCharacters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	room := newTestRoom("111111", "alice", 1)
	require.NoError(t, s.CreateRoom(ctx, room))

	cfg, err := s.GetCampaign(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, cfg.AICanAskClarifications)
	assert.False(t, cfg.Loaded())

	cfg.RulesAuthority = "D&D 5e"
	require.NoError(t, s.SaveCampaign(ctx, cfg))
	cfg, err = s.GetCampaign(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, cfg.Loaded())

	c := &models.Character{ID: uuid.New(), RoomID: room.ID, UserID: "bob", UserName: "Bob", SheetFileName: "bob.pdf", CreatedAt: 10}
	require.NoError(t, s.SaveCharacter(ctx, c))
	c.Approved = true
	require.NoError(t, s.SaveCharacter(ctx, c))

	chars, err := s.ListCharacters(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, 1, models.CountApproved(chars))

	orphan := &models.Character{ID: uuid.New(), RoomID: uuid.New()}
	assert.ErrorIs(t, s.SaveCharacter(ctx, orphan), ErrNotFound)

	require.NoError(t, s.DeleteRoom(ctx, room.ID))
	assert.ErrorIs(t, s.DeleteRoom(ctx, room.ID), ErrNotFound)
	_, err = s.GetCharacter(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRoomByCode(ctx, "111111")
	assert.ErrorIs(t, err, ErrNotFound)
	chars, err = s.ListCharacters(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, chars)
}
