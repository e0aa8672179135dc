// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue serves queued payloads and reports redis.Nil when empty.
type fakeQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeQueue) push(t *testing.T, ev models.RoomEvent) {
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	q.pushRaw(string(data))
}

func (q *fakeQueue) pushRaw(s string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, s)
}

func (q *fakeQueue) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		time.Sleep(time.Millisecond)
		cmd.SetErr(redis.Nil)
		return cmd
	}
	item := q.items[0]
	q.items = q.items[1:]
	cmd.SetVal([]string{keys[0], item})
	return cmd
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]models.RoomEvent
	fail    bool
}

func (s *fakeSink) InsertEvents(_ context.Context, events []models.RoomEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]models.RoomEvent(nil), events...))
	return nil
}

func (s *fakeSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testEvent(i int) models.RoomEvent {
	return models.RoomEvent{Type: models.EventMessageAppended, RoomID: uuid.New(), ActorID: "alice", Timestamp: int64(i)}
}

func TestHistorianBatchesAndFlushesOnShutdown(t *testing.T) {
	q := &fakeQueue{}
	sink := &fakeSink{}
	for i := 0; i < 5; i++ {
		q.push(t, testEvent(i))
	}
	q.pushRaw("not json")

	svc := New(q, sink, Options{Queue: "events", BatchSize: 2, FlushDelay: time.Hour}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.total() >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 5, sink.total(), "the odd event is flushed at shutdown and the bad record skipped")
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.batches[0], 2)
	assert.Equal(t, int64(0), sink.batches[0][0].Timestamp)
}

func TestFlushRetainsEventsOnFailure(t *testing.T) {
	sink := &fakeSink{fail: true}
	svc := New(&fakeQueue{}, sink, Options{Queue: "events", BatchSize: 10}, quietLogger())
	svc.append(testEvent(1))
	svc.append(testEvent(2))

	require.Error(t, svc.Flush(context.Background()))
	assert.Len(t, svc.batch, 2)

	sink.fail = false
	require.NoError(t, svc.Flush(context.Background()))
	assert.Equal(t, 2, sink.total())
	assert.Empty(t, svc.batch)
}
