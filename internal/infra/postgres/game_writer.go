package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"nutriplay-engine/internal/domain"
)

type gameRow struct {
	bun.BaseModel `bun:"table:games"`

	ID        string      `bun:"id,pk"`
	Kind      string      `bun:"kind,notnull"`
	Data      domain.Game `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time   `bun:"updated_at,notnull,default:current_timestamp"`
}

// GameWriter upserts catalog entries (used by the seed command).
type GameWriter struct {
	db  *bun.DB
	now func() time.Time
}

func NewGameWriter(db *bun.DB) *GameWriter {
	return &GameWriter{db: db, now: time.Now}
}

// Upsert inserts the games or replaces their stored content.
func (w *GameWriter) Upsert(ctx context.Context, games []domain.Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	now := w.now().UTC()
	rows := make([]gameRow, 0, len(games))
	for _, g := range games {
		rows = append(rows, gameRow{ID: g.ID, Kind: string(g.Kind), Data: g, UpdatedAt: now})
	}
	res, err := w.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}
