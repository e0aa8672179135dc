// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Source is the subset of the Redis client the historian reads from.
type Source interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink persists a batch of events atomically.
type Sink interface {
	InsertEvents(ctx context.Context, events []models.RoomEvent) error
}

// Options tune batching.
type Options struct {
	Queue       string
	BatchSize   int
	FlushDelay  time.Duration
	PollTimeout time.Duration
}

// Service drains the room event queue into a Sink in batches.
type Service struct {
	src    Source
	sink   Sink
	opts   Options
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.RoomEvent
}

func New(src Source, sink Sink, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Second
	}
	return &Service{
		src:    src,
		sink:   sink,
		opts:   opts,
		logger: logger,
		batch:  make([]models.RoomEvent, 0, opts.BatchSize),
	}
}

// Run pops events until ctx is cancelled, flushing when the batch is full and
// on every tick. Whatever is buffered at shutdown is flushed before returning.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	s.logger.WithField("queue", s.opts.Queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.logger.Info("historian shutting down")
			return s.Flush(flushCtx)

		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}

		default:
			res, err := s.src.BLPop(ctx, s.opts.PollTimeout, s.opts.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.logger.WithError(err).Error("BLPop failed")
				}
				continue
			}
			// res[0] is the queue name, res[1] the payload.
			if len(res) < 2 {
				continue
			}
			var ev models.RoomEvent
			if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
				s.logger.WithError(err).Warn("invalid room event record")
				continue
			}
			if s.append(ev) {
				if err := s.Flush(ctx); err != nil {
					s.logger.WithError(err).Error("flush failed")
				}
			}
		}
	}
}

// append buffers ev and reports whether the batch is full.
func (s *Service) append(ev models.RoomEvent) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, ev)
	return len(s.batch) >= s.opts.BatchSize
}

// Flush writes the buffered events. On failure the events are put back at
// the front of the buffer so the next flush retries them.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	pending := make([]models.RoomEvent, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertEvents(ctx, pending); err != nil {
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return fmt.Errorf("inserting %d events: %w", len(pending), err)
	}
	s.logger.WithField("count", len(pending)).Debug("flushed room events")
	return nil
}

// PostgresSink writes events into the room_events table.
type PostgresSink struct {
	db *pgxpool.Pool
}

func NewPostgresSink(db *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) InsertEvents(ctx context.Context, events []models.RoomEvent) error {
	q := `
	INSERT INTO room_events (room_id, event_type, actor_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, p.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, q, ev.RoomID, string(ev.Type), ev.ActorID, payload, ev.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}
