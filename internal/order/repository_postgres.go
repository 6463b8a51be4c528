package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"menusemanal/internal/storeerr"
)

const recordColumns = `id, week_start, day, option, user_name, count, comments, updated_at`

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.WeekKey,
		&rec.Day,
		&rec.Option,
		&rec.UserName,
		&rec.Count,
		&rec.Comments,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Comments == nil {
		rec.Comments = []string{}
	}
	return &rec, nil
}

// --------------------------------------------------
// INCREMENT (atomic upsert, copies the day's comments)
// --------------------------------------------------
func (r *PostgresRepository) Increment(ctx context.Context, k Key) (*Record, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO menu_orders (id, week_start, day, option, user_name, count, comments, updated_at)
		VALUES (
			$1, $2, $3, $4, $5, 1,
			COALESCE((
				SELECT comments FROM menu_orders
				WHERE week_start = $2 AND day = $3 AND user_name = $5
				ORDER BY updated_at DESC
				LIMIT 1
			), '{}'),
			now()
		)
		ON CONFLICT (week_start, day, option, user_name)
		DO UPDATE SET count = menu_orders.count + 1, updated_at = now()
		RETURNING `+recordColumns,
		uuid.New().String(), k.WeekKey, k.Day, k.Option, k.UserName,
	)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, storeerr.Write(err, "increment order")
	}
	return rec, nil
}

// --------------------------------------------------
// DECREMENT (clamped at zero, never inserts)
// --------------------------------------------------
func (r *PostgresRepository) Decrement(ctx context.Context, k Key) (*Record, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE menu_orders
		SET count = GREATEST(count - 1, 0), updated_at = now()
		WHERE week_start = $1 AND day = $2 AND option = $3 AND user_name = $4
		RETURNING `+recordColumns,
		k.WeekKey, k.Day, k.Option, k.UserName,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeerr.Write(err, "decrement order")
	}
	return rec, nil
}

func (r *PostgresRepository) SetComments(ctx context.Context, weekKey, day, user string, comments []string) (int64, error) {
	if comments == nil {
		comments = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE menu_orders
		SET comments = $4, updated_at = now()
		WHERE week_start = $1 AND day = $2 AND user_name = $3
	`, weekKey, day, user, comments)
	if err != nil {
		return 0, storeerr.Write(err, "set order comments")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) query(ctx context.Context, op, sql string, args ...any) ([]Record, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeerr.Read(err, op)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeerr.Read(err, op)
		}
		out = append(out, *rec)
	}
	return out, storeerr.Read(rows.Err(), op)
}

func (r *PostgresRepository) ListByWeek(ctx context.Context, weekKey string) ([]Record, error) {
	return r.query(ctx, "list week orders", `
		SELECT `+recordColumns+`
		FROM menu_orders
		WHERE week_start = $1
		ORDER BY updated_at, id
	`, weekKey)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, weekKey, user string) ([]Record, error) {
	return r.query(ctx, "list user orders", `
		SELECT `+recordColumns+`
		FROM menu_orders
		WHERE week_start = $1 AND user_name = $2
		ORDER BY updated_at, id
	`, weekKey, user)
}

func (r *PostgresRepository) ClearComments(ctx context.Context, weekKey string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE menu_orders
		SET comments = '{}', updated_at = now()
		WHERE week_start = $1 AND cardinality(comments) > 0
	`, weekKey)
	if err != nil {
		return 0, storeerr.Write(err, "clear comments")
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteWeek(ctx context.Context, weekKey string, before time.Time) (int64, error) {
	var cutoff any
	if !before.IsZero() {
		cutoff = before
	}
	tag, err := r.db.Exec(ctx, `
		DELETE FROM menu_orders
		WHERE week_start = $1
		  AND ($2::timestamptz IS NULL OR updated_at < $2::timestamptz)
	`, weekKey, cutoff)
	if err != nil {
		return 0, storeerr.Write(err, "delete week orders")
	}
	return tag.RowsAffected(), nil
}
