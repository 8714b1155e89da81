package postgres

import (
	"context"

	"github.com/cwrk-planet/poker-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository is an append-only journal of game events. Nothing is read
// back on startup; games live in memory only. Rows are inserted in the order
// the async queue delivers them; seq is the order the registry applied them.
type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_events (
			id          BIGSERIAL PRIMARY KEY,
			seq         BIGINT      NOT NULL,
			kind        TEXT        NOT NULL,
			code        TEXT        NOT NULL,
			game_id     BIGINT      NOT NULL,
			name        TEXT        NOT NULL DEFAULT '',
			detail      TEXT        NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS game_events_game_idx ON game_events (code, game_id, seq)`)
	return err
}

func (r *EventRepository) Insert(ctx context.Context, e domain.Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO game_events (seq, kind, code, game_id, name, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(e.Seq), string(e.Kind), e.Code, int64(e.GameID), e.Name, e.Detail, e.At)
	return err
}
