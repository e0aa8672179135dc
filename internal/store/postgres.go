// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/taverna/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         UUID PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	host_id    TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_host_idx ON rooms (host_id);
CREATE TABLE IF NOT EXISTS room_states (
	room_id    UUID PRIMARY KEY REFERENCES rooms(id) ON DELETE CASCADE,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS campaigns (
	room_id UUID PRIMARY KEY REFERENCES rooms(id) ON DELETE CASCADE,
	config  JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS characters (
	id              UUID PRIMARY KEY,
	room_id         UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	user_name       TEXT NOT NULL,
	sheet_file_name TEXT NOT NULL,
	approved        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS room_events (
	id         BIGSERIAL PRIMARY KEY,
	room_id    UUID NOT NULL,
	event_type TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	payload    JSONB,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS room_events_room_idx ON room_events (room_id, created_at);
`

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables used by the service and the historian.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// PostgresStore persists rooms in Postgres. Room state and campaign config
// are stored whole as JSONB, mirroring how they are read and written.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateRoom(ctx context.Context, room *models.Room) error {
	q := `INSERT INTO rooms (id, code, name, host_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, room.ID, room.Code, room.Name, room.HostID, room.CreatedAt)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrCodeTaken
	}
	return err
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.HostID, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	q := `SELECT id, code, name, host_id, created_at FROM rooms WHERE id = $1`
	return scanRoom(s.db.QueryRow(ctx, q, id))
}

func (s *PostgresStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	q := `SELECT id, code, name, host_id, created_at FROM rooms WHERE code = $1`
	return scanRoom(s.db.QueryRow(ctx, q, code))
}

func (s *PostgresStore) ListRoomsByHost(ctx context.Context, hostID string) ([]models.Room, error) {
	q := `SELECT id, code, name, host_id, created_at FROM rooms WHERE host_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Room{}
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.HostID, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LoadState(ctx context.Context, roomID uuid.UUID) (*models.RoomState, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT state FROM room_states WHERE room_id = $1`, roomID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewRoomState(), nil
	}
	if err != nil {
		return nil, err
	}
	state := models.NewRoomState()
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("decoding room state %s: %w", roomID, err)
	}
	state.Normalize()
	return state, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, roomID uuid.UUID, state *models.RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding room state %s: %w", roomID, err)
	}
	q := `
	INSERT INTO room_states (room_id, state, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (room_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
	`
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, roomID, raw)
		return err
	})
}

func (s *PostgresStore) GetCampaign(ctx context.Context, roomID uuid.UUID) (*models.CampaignConfig, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT config FROM campaigns WHERE room_id = $1`, roomID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewCampaignConfig(roomID), nil
	}
	if err != nil {
		return nil, err
	}
	cfg := models.NewCampaignConfig(roomID)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding campaign %s: %w", roomID, err)
	}
	cfg.RoomID = roomID
	return cfg, nil
}

func (s *PostgresStore) SaveCampaign(ctx context.Context, cfg *models.CampaignConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding campaign %s: %w", cfg.RoomID, err)
	}
	q := `
	INSERT INTO campaigns (room_id, config) VALUES ($1, $2)
	ON CONFLICT (room_id) DO UPDATE SET config = EXCLUDED.config
	`
	_, err = s.db.Exec(ctx, q, cfg.RoomID, raw)
	return err
}

const characterColumns = `id, room_id, user_id, user_name, sheet_file_name, approved, created_at`

func scanCharacter(row pgx.Row) (models.Character, error) {
	var c models.Character
	err := row.Scan(&c.ID, &c.RoomID, &c.UserID, &c.UserName, &c.SheetFileName, &c.Approved, &c.CreatedAt)
	return c, err
}

func (s *PostgresStore) ListCharacters(ctx context.Context, roomID uuid.UUID) ([]models.Character, error) {
	q := `SELECT ` + characterColumns + ` FROM characters WHERE room_id = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	q := `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`
	c, err := scanCharacter(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) SaveCharacter(ctx context.Context, c *models.Character) error {
	q := `
	INSERT INTO characters (` + characterColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		user_name = EXCLUDED.user_name,
		sheet_file_name = EXCLUDED.sheet_file_name,
		approved = EXCLUDED.approved
	`
	_, err := s.db.Exec(ctx, q, c.ID, c.RoomID, c.UserID, c.UserName, c.SheetFileName, c.Approved, c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}
