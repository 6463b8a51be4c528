package menu

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNoMenu = errors.New("no menu uploaded")

// Repository stores uploaded weekly menus.
type Repository interface {
	// Insert stores m, filling ID and UpdatedAt when empty.
	Insert(ctx context.Context, m *WeeklyMenu) error

	// Latest returns the most recently updated menu or ErrNoMenu.
	Latest(ctx context.Context) (*WeeklyMenu, error)
}

type InMemoryRepository struct {
	mu    sync.RWMutex
	menus []*WeeklyMenu
	now   func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: time.Now}
}

func (r *InMemoryRepository) Insert(_ context.Context, m *WeeklyMenu) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = r.now()
	}
	cp := *m
	cp.Data = m.Data.Clone()
	r.menus = append(r.menus, &cp)
	return nil
}

func (r *InMemoryRepository) Latest(_ context.Context) (*WeeklyMenu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.menus) == 0 {
		return nil, ErrNoMenu
	}
	sorted := append([]*WeeklyMenu(nil), r.menus...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	cp := *sorted[0]
	cp.Data = sorted[0].Data.Clone()
	return &cp, nil
}
