package summary

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrNoSnapshot = errors.New("no summary snapshot for week")

// SnapshotRepository holds the shared per-week summary. Writers overwrite
// each other; there is no version check.
type SnapshotRepository interface {
	Get(ctx context.Context, weekKey string) (*Summary, error)
	Put(ctx context.Context, s *Summary) error
	Delete(ctx context.Context, weekKey string) error
}

type InMemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string]Summary
	now       func() time.Time
}

func NewInMemorySnapshotRepository() *InMemorySnapshotRepository {
	return &InMemorySnapshotRepository{
		snapshots: make(map[string]Summary),
		now:       time.Now,
	}
}

func (r *InMemorySnapshotRepository) Get(_ context.Context, weekKey string) (*Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.snapshots[weekKey]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return clone(&s), nil
}

func (r *InMemorySnapshotRepository) Put(_ context.Context, s *Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = r.now()
	}
	r.snapshots[s.WeekKey] = *clone(s)
	return nil
}

func (r *InMemorySnapshotRepository) Delete(_ context.Context, weekKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, weekKey)
	return nil
}

func clone(s *Summary) *Summary {
	out := *s
	out.Days = make([]DaySummary, len(s.Days))
	for i, d := range s.Days {
		out.Days[i] = DaySummary{
			Day:      d.Day,
			Counts:   append([]OptionCount{}, d.Counts...),
			Comments: append([]string{}, d.Comments...),
		}
	}
	return &out
}
