// Package menuwatch acts on menu changes: when the reset decider says the
// menu really changed, the week's older orders and the shared summary are
// dropped and users get a notice.
package menuwatch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"menusemanal/internal/feed"
	"menusemanal/internal/menu"
	"menusemanal/internal/reset"
	"menusemanal/internal/week"
)

const resetMessage = "Se cargó un menú nuevo. Los pedidos de esta semana se reiniciaron."

type MenuSource interface {
	Current(ctx context.Context) (*menu.Loaded, error)
}

type OrderDeleter interface {
	DeleteWeek(ctx context.Context, weekKey string, before time.Time) (int64, error)
}

type SnapshotDeleter interface {
	Delete(ctx context.Context, weekKey string) error
}

type Resetter interface {
	ResetTo(m menu.Canonical)
}

type Publisher interface {
	Publish(ev feed.Event)
}

type Watcher struct {
	menus      MenuSource
	decider    *reset.Decider
	orders     OrderDeleter
	snapshots  SnapshotDeleter
	reconciler Resetter
	hub        Publisher
	weeks      *week.Resolver
	log        *zap.Logger
}

func New(
	menus MenuSource,
	decider *reset.Decider,
	orders OrderDeleter,
	snapshots SnapshotDeleter,
	reconciler Resetter,
	hub Publisher,
	weeks *week.Resolver,
	log *zap.Logger,
) *Watcher {
	return &Watcher{
		menus:      menus,
		decider:    decider,
		orders:     orders,
		snapshots:  snapshots,
		reconciler: reconciler,
		hub:        hub,
		weeks:      weeks,
		log:        log.Named("menuwatch"),
	}
}

// OnUpload matches menu.Observer.
func (w *Watcher) OnUpload(ctx context.Context, m *menu.WeeklyMenu) {
	if _, err := w.Check(ctx, m); err != nil {
		w.log.Error("menu reset failed", zap.Error(err))
	}
}

// Sync checks the menu currently in effect. Default and cached menus are
// skipped; neither says anything about what was uploaded.
func (w *Watcher) Sync(ctx context.Context) (reset.Decision, error) {
	loaded, err := w.menus.Current(ctx)
	if err != nil {
		return reset.Decision{}, err
	}
	if loaded.Default || loaded.Degraded {
		return reset.Decision{}, nil
	}
	return w.Check(ctx, &loaded.Menu)
}

// Check runs the decider for m and performs the reset when asked to. The
// new fingerprint is only remembered after the week's orders and snapshot
// are gone, so a failed reset is retried on the next check.
func (w *Watcher) Check(ctx context.Context, m *menu.WeeklyMenu) (reset.Decision, error) {
	d := w.decider.Decide(ctx, m.Data)
	if !d.ShouldReset {
		return d, nil
	}

	weekKey := w.weeks.Current()

	// Only rows older than the new menu go, so orders placed against it
	// survive a late duplicate reset from another instance.
	n, err := w.orders.DeleteWeek(ctx, weekKey, m.UpdatedAt)
	if err != nil {
		return d, errors.Wrap(err, "delete week orders")
	}
	if err := w.snapshots.Delete(ctx, weekKey); err != nil {
		return d, errors.Wrap(err, "delete summary snapshot")
	}
	if err := w.decider.Commit(ctx, d.Fingerprint); err != nil {
		return d, err
	}

	if w.reconciler != nil {
		w.reconciler.ResetTo(m.Data)
	}

	w.log.Info("week reset after menu change",
		zap.String("week", weekKey),
		zap.String("menu", m.ID),
		zap.Int64("orders_deleted", n),
	)
	if w.hub != nil {
		w.hub.Publish(feed.Notice(weekKey, "menu_reset", resetMessage))
	}
	return d, nil
}

// Run syncs once and then again on every weekly_menus event.
func (w *Watcher) Run(ctx context.Context, events <-chan feed.Event) error {
	if _, err := w.Sync(ctx); err != nil {
		w.log.Warn("initial menu check failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Table != feed.TableMenus {
				continue
			}
			if _, err := w.Sync(ctx); err != nil {
				w.log.Warn("menu check failed", zap.Error(err))
			}
		}
	}
}
