// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakePusher) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(int64(len(f.values)))
	}
	return cmd
}

func TestPublishRoomEvent(t *testing.T) {
	fp := &fakePusher{}
	pub := NewEventPublisher(fp, "")
	ev := models.RoomEvent{
		Type:      models.EventTurnFinalized,
		RoomID:    uuid.New(),
		ActorID:   "alice",
		Payload:   map[string]any{"next": "bob"},
		Timestamp: 42,
	}
	require.NoError(t, pub.PublishRoomEvent(context.Background(), ev))

	assert.Equal(t, DefaultQueueName, fp.key)
	require.Len(t, fp.values, 1)
	var got models.RoomEvent
	require.NoError(t, json.Unmarshal(fp.values[0].([]byte), &got))
	assert.Equal(t, ev, got)
}

func TestPublishRoomEventError(t *testing.T) {
	fp := &fakePusher{err: errors.New("connection refused")}
	pub := NewEventPublisher(fp, "custom")
	err := pub.PublishRoomEvent(context.Background(), models.RoomEvent{Type: models.EventRoomCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom")
	assert.Equal(t, "custom", fp.key)
}
