package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("order record not found")

type Repository interface {
	// Increment adds one to the counter, creating the row with the
	// user's existing comments for that day when it does not exist.
	Increment(ctx context.Context, k Key) (*Record, error)

	// Decrement removes one, never going below zero. It never creates a
	// row and returns ErrNotFound when there is none.
	Decrement(ctx context.Context, k Key) (*Record, error)

	// SetComments rewrites the comment list on every row the user has
	// for that day and reports how many rows changed.
	SetComments(ctx context.Context, weekKey, day, user string, comments []string) (int64, error)

	ListByWeek(ctx context.Context, weekKey string) ([]Record, error)
	ListByUser(ctx context.Context, weekKey, user string) ([]Record, error)

	ClearComments(ctx context.Context, weekKey string) (int64, error)

	// DeleteWeek removes the week's rows last updated before the given
	// time. A zero time removes all of them.
	DeleteWeek(ctx context.Context, weekKey string, before time.Time) (int64, error)
}

type InMemoryRepository struct {
	mu      sync.Mutex
	records map[Key]*Record
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[Key]*Record),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for UpdatedAt.
func (r *InMemoryRepository) WithClock(now func() time.Time) *InMemoryRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

func clone(r *Record) Record {
	cp := *r
	cp.Comments = append([]string{}, r.Comments...)
	return cp
}

func (r *InMemoryRepository) Increment(_ context.Context, k Key) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[k]
	if !ok {
		rec = &Record{
			ID:       uuid.New().String(),
			WeekKey:  k.WeekKey,
			Day:      k.Day,
			Option:   k.Option,
			UserName: k.UserName,
			Comments: r.sharedComments(k.WeekKey, k.Day, k.UserName),
		}
		r.records[k] = rec
	}
	rec.Count++
	rec.UpdatedAt = r.now()

	out := clone(rec)
	return &out, nil
}

func (r *InMemoryRepository) Decrement(_ context.Context, k Key) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[k]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Count > 0 {
		rec.Count--
	}
	rec.UpdatedAt = r.now()

	out := clone(rec)
	return &out, nil
}

// sharedComments must be called with mu held.
func (r *InMemoryRepository) sharedComments(weekKey, day, user string) []string {
	var latest *Record
	for _, rec := range r.records {
		if rec.WeekKey != weekKey || rec.Day != day || rec.UserName != user {
			continue
		}
		if latest == nil || rec.UpdatedAt.After(latest.UpdatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return []string{}
	}
	return append([]string{}, latest.Comments...)
}

func (r *InMemoryRepository) SetComments(_ context.Context, weekKey, day, user string, comments []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.now()
	for _, rec := range r.records {
		if rec.WeekKey == weekKey && rec.Day == day && rec.UserName == user {
			rec.Comments = append([]string{}, comments...)
			rec.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) list(match func(*Record) bool) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0)
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *InMemoryRepository) ListByWeek(_ context.Context, weekKey string) ([]Record, error) {
	return r.list(func(rec *Record) bool { return rec.WeekKey == weekKey }), nil
}

func (r *InMemoryRepository) ListByUser(_ context.Context, weekKey, user string) ([]Record, error) {
	return r.list(func(rec *Record) bool {
		return rec.WeekKey == weekKey && rec.UserName == user
	}), nil
}

func (r *InMemoryRepository) ClearComments(_ context.Context, weekKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.now()
	for _, rec := range r.records {
		if rec.WeekKey == weekKey && len(rec.Comments) > 0 {
			rec.Comments = []string{}
			rec.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) DeleteWeek(_ context.Context, weekKey string, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, rec := range r.records {
		if rec.WeekKey != weekKey {
			continue
		}
		if !before.IsZero() && !rec.UpdatedAt.Before(before) {
			continue
		}
		delete(r.records, k)
		n++
	}
	return n, nil
}
