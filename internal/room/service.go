// internal/room/service.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/assets"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/jason-s-yu/taverna/internal/provider"
	"github.com/jason-s-yu/taverna/internal/store"
	"github.com/sirupsen/logrus"
)

// Generator produces narration from a context. provider.Adapter implements it.
type Generator interface {
	Generate(ctx context.Context, messages []models.ContextMessage, apiKey, model, providerID string) (provider.Result, error)
}

// EventPublisher forwards room events outside the process.
type EventPublisher interface {
	PublishRoomEvent(ctx context.Context, ev models.RoomEvent) error
}

// Options tune the service.
type Options struct {
	SettleDelay     time.Duration
	HistoryLimit    int
	DefaultProvider string
	ServerAPIKey    string
	Now             func() time.Time
}

// Service is the single serialization point for every room: each mutation
// loads the room state, applies one operation and saves it while holding
// that room's lock.
type Service struct {
	store     store.Store
	blobs     assets.BlobStore
	gen       Generator
	publisher EventPublisher
	logger    *logrus.Logger
	opts      Options

	locks *keyedMutex
	keys  *Keyring

	subsMu sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
}

// NewService wires a room service. publisher may be nil.
func NewService(st store.Store, blobs assets.BlobStore, gen Generator, publisher EventPublisher, logger *logrus.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     st,
		blobs:     blobs,
		gen:       gen,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		locks:     newKeyedMutex(),
		keys:      NewKeyring(),
		subs:      make(map[uuid.UUID]map[*Subscription]struct{}),
	}
}

// change is the event a successful mutation announces. A zero Type announces nothing.
type change struct {
	Type    models.RoomEventType
	Payload map[string]any
}

// mutation is applied to a private copy of the room state.
type mutation func(room *models.Room, state *models.RoomState) (change, error)

// mutate runs fn under the room lock. The state is saved and the change
// emitted only if fn succeeds, so events leave in the order they were applied.
func (s *Service) mutate(ctx context.Context, roomID uuid.UUID, actorID string, fn mutation) (*models.Room, *models.RoomState, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	state, err := s.store.LoadState(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	ch, err := fn(room, state)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.SaveState(ctx, roomID, state); err != nil {
		return nil, nil, err
	}
	if ch.Type != "" {
		s.emit(ctx, ch.Type, roomID, actorID, ch.Payload)
	}
	return room, state, nil
}

func (s *Service) now() time.Time {
	return s.opts.Now()
}

func (s *Service) log(roomID uuid.UUID, userID string) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{"room": roomID, "user": userID})
}

// emit fans an event out to local subscribers and the historian queue.
func (s *Service) emit(ctx context.Context, typ models.RoomEventType, roomID uuid.UUID, actorID string, payload map[string]any) {
	ev := models.RoomEvent{
		Type:      typ,
		RoomID:    roomID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: s.now().UnixMilli(),
	}

	s.subsMu.RLock()
	for sub := range s.subs[roomID] {
		select {
		case sub.C <- ev:
		default:
			s.log(roomID, actorID).WithField("event", typ).Warn("subscriber buffer full, event dropped")
		}
	}
	s.subsMu.RUnlock()

	if s.publisher != nil {
		if err := s.publisher.PublishRoomEvent(context.WithoutCancel(ctx), ev); err != nil {
			s.log(roomID, actorID).WithError(err).Warn("failed to publish room event")
		}
	}
}

// Subscription receives every event of one room.
type Subscription struct {
	RoomID uuid.UUID
	C      chan models.RoomEvent
}

// Subscribe registers a live listener for roomID.
func (s *Service) Subscribe(roomID uuid.UUID) *Subscription {
	sub := &Subscription{RoomID: roomID, C: make(chan models.RoomEvent, 32)}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.subs[roomID] == nil {
		s.subs[roomID] = make(map[*Subscription]struct{})
	}
	s.subs[roomID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub. Its channel is not closed.
func (s *Service) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs[sub.RoomID], sub)
	if len(s.subs[sub.RoomID]) == 0 {
		delete(s.subs, sub.RoomID)
	}
}

// keyedMutex hands out one mutex per room, dropping it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*roomLock)}
}

// Lock blocks until the room's lock is held and returns its release func.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &roomLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
