package menu

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"menusemanal/internal/storeerr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --------------------------------------------------
// INSERT MENU (append-only, latest wins)
// --------------------------------------------------
func (r *PostgresRepository) Insert(ctx context.Context, m *WeeklyMenu) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	data, err := json.Marshal(m.Data)
	if err != nil {
		return errors.Wrap(err, "encode menu")
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO weekly_menus (id, menu_data, week_start, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
		RETURNING updated_at
	`, m.ID, data, m.WeekKey, nullTime(m)).Scan(&m.UpdatedAt)

	return storeerr.Write(err, "insert weekly menu")
}

// --------------------------------------------------
// LATEST MENU (regardless of week_start)
// --------------------------------------------------
func (r *PostgresRepository) Latest(ctx context.Context) (*WeeklyMenu, error) {
	var (
		m    WeeklyMenu
		data []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, menu_data, week_start, updated_at
		FROM weekly_menus
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&m.ID, &data, &m.WeekKey, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoMenu
		}
		return nil, storeerr.Read(err, "latest weekly menu")
	}

	// Stored rows may predate normalisation; keep the raw shape and let
	// the service normalise it.
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode menu_data")
	}
	m.Data = Canonical(raw)

	return &m, nil
}

func nullTime(m *WeeklyMenu) any {
	if m.UpdatedAt.IsZero() {
		return nil
	}
	return m.UpdatedAt
}
