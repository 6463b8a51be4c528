package summary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"menusemanal/internal/storeerr"
)

type PostgresSnapshotRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSnapshotRepository(db *pgxpool.Pool) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

func (r *PostgresSnapshotRepository) Get(ctx context.Context, weekKey string) (*Summary, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `
		SELECT summary
		FROM order_summaries
		WHERE week_start = $1 AND user_name = $2
	`, weekKey, General).Scan(&data)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, storeerr.Read(err, "get summary snapshot")
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode summary snapshot")
	}
	return &s, nil
}

// --------------------------------------------------
// PUT (last writer wins)
// --------------------------------------------------
func (r *PostgresSnapshotRepository) Put(ctx context.Context, s *Summary) error {
	s.User = General
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode summary snapshot")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO order_summaries (id, week_start, user_name, summary, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (week_start, user_name)
		DO UPDATE SET
			summary = EXCLUDED.summary,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, uuid.New().String(), s.WeekKey, General, data, s.UpdatedBy, s.UpdatedAt)

	return storeerr.Write(err, "put summary snapshot")
}

func (r *PostgresSnapshotRepository) Delete(ctx context.Context, weekKey string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM order_summaries
		WHERE week_start = $1 AND user_name = $2
	`, weekKey, General)
	return storeerr.Write(err, "delete summary snapshot")
}
