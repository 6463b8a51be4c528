package summary

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"menusemanal/internal/cache"
	"menusemanal/internal/feed"
	"menusemanal/internal/menu"
	"menusemanal/internal/order"
	"menusemanal/internal/seqguard"
	"menusemanal/internal/week"
)

type State int

const (
	Loading State = iota
	Live
	Stale
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Live:
		return "live"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// ErrNotReady is returned by Current before the first load finished.
var ErrNotReady = errors.New("summary not loaded yet")

type OrderLister interface {
	ListByWeek(ctx context.Context, weekKey string) ([]order.Record, error)
}

type MenuSource interface {
	Current(ctx context.Context) (*menu.Loaded, error)
}

// Status describes the cached summary.
type Status struct {
	State       State     `json:"-"`
	StateName   string    `json:"state"`
	Degraded    bool      `json:"degraded"`
	Pending     bool      `json:"pending"`
	LastRefresh time.Time `json:"last_refresh"`
}

type ReconcilerConfig struct {
	Interval time.Duration
	// Instance is written to Summary.UpdatedBy on snapshots from here.
	Instance string
}

// Reconciler keeps the current week's aggregate. Change events trigger a
// full recompute, pushed snapshots replace the cache unless older, and a
// periodic tick retries recomputes that are still pending. Every
// recompute is tagged and only the latest one issued may land.
type Reconciler struct {
	orders    OrderLister
	menus     MenuSource
	snapshots SnapshotRepository
	weeks     *week.Resolver
	lastGood  *cache.LastGood[Summary]
	guard     *seqguard.Guard
	cfg       ReconcilerConfig
	now       func() time.Time
	log       *zap.Logger

	mu          sync.RWMutex
	state       State
	current     *Summary
	degraded    bool
	pending     bool
	lastRefresh time.Time
}

func NewReconciler(
	orders OrderLister,
	menus MenuSource,
	snapshots SnapshotRepository,
	weeks *week.Resolver,
	store cache.Store,
	cfg ReconcilerConfig,
	log *zap.Logger,
) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Reconciler{
		orders:    orders,
		menus:     menus,
		snapshots: snapshots,
		weeks:     weeks,
		lastGood:  cache.NewLastGood[Summary](store, "summary/general"),
		guard:     seqguard.New(),
		cfg:       cfg,
		now:       time.Now,
		log:       log.Named("reconciler"),
	}
}

func guardKey(weekKey string) string { return "summary/" + weekKey }

// Current returns a copy of the cached summary.
func (r *Reconciler) Current() (*Summary, Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := r.statusLocked()
	if r.current == nil {
		return nil, st, ErrNotReady
	}
	return clone(r.current), st, nil
}

func (r *Reconciler) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusLocked()
}

func (r *Reconciler) statusLocked() Status {
	return Status{
		State:       r.state,
		StateName:   r.state.String(),
		Degraded:    r.degraded,
		Pending:     r.pending,
		LastRefresh: r.lastRefresh,
	}
}

// --------------------------------------------------
// Loading
// --------------------------------------------------

// Load reads the shared snapshot for the current week, computing and
// persisting one when there is none. On a read failure it falls back to
// the local last good copy and stays Stale until a recompute succeeds.
func (r *Reconciler) Load(ctx context.Context) error {
	weekKey := r.weeks.Current()

	r.mu.Lock()
	r.state = Loading
	r.mu.Unlock()

	snap, err := r.snapshots.Get(ctx, weekKey)
	switch {
	case err == nil:
		seq := r.guard.Issue(guardKey(weekKey))
		r.guard.Apply(guardKey(weekKey), seq, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.current = snap
			r.state = Live
			r.degraded = false
			r.pending = false
			r.lastRefresh = r.now()
		})
		r.log.Info("summary snapshot loaded", zap.String("week", weekKey), zap.Int("total", snap.Total()))
		return nil

	case errors.Is(err, ErrNoSnapshot):
		_, err := r.Recompute(ctx)
		return err
	}

	r.log.Warn("summary snapshot read failed", zap.String("week", weekKey), zap.Error(err))
	if _, rerr := r.Recompute(ctx); rerr == nil {
		return nil
	}
	cached, _, ok, cerr := r.lastGood.Load(ctx, 0)
	if cerr != nil {
		r.log.Warn("summary cache read failed", zap.Error(cerr))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Stale
	r.pending = true
	if ok && cached.WeekKey == weekKey {
		r.current = &cached
		r.degraded = true
		return nil
	}
	return err
}

// --------------------------------------------------
// Full recompute
// --------------------------------------------------

// Recompute aggregates every record of the current week, installs the
// result if no newer recompute was issued meanwhile and persists it as
// the shared snapshot.
func (r *Reconciler) Recompute(ctx context.Context) (*Summary, error) {
	weekKey := r.weeks.Current()
	seq := r.guard.Issue(guardKey(weekKey))

	var (
		loaded  *menu.Loaded
		records []order.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loaded, err = r.menus.Current(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = r.orders.ListByWeek(gctx, weekKey)
		return err
	})
	if err := g.Wait(); err != nil {
		r.markPending(err)
		return nil, err
	}

	s := Aggregate(weekKey, loaded.Menu.Data, records)
	s.UpdatedAt = r.now()
	s.UpdatedBy = r.cfg.Instance

	applied := r.guard.Apply(guardKey(weekKey), seq, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.current = s
		r.state = Live
		r.degraded = loaded.Degraded
		r.pending = false
		r.lastRefresh = s.UpdatedAt
	})
	if !applied {
		r.log.Debug("discarding superseded recompute", zap.Uint64("seq", seq))
		return clone(s), nil
	}

	// The records and the snapshot are not written atomically; a failed
	// write here is repaired by the next recompute.
	if err := r.snapshots.Put(ctx, clone(s)); err != nil {
		r.log.Warn("summary snapshot write failed", zap.Error(err))
		r.mu.Lock()
		r.pending = true
		r.mu.Unlock()
	}
	if err := r.lastGood.Save(ctx, *s); err != nil {
		r.log.Warn("summary cache write failed", zap.Error(err))
	}

	r.log.Debug("summary recomputed",
		zap.String("week", weekKey),
		zap.Int("records", len(records)),
		zap.Int("total", s.Total()),
	)
	return clone(s), nil
}

func (r *Reconciler) markPending(err error) {
	r.log.Warn("summary recompute failed", zap.Error(err))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = true
	if r.current != nil {
		r.state = Stale
	}
}

// --------------------------------------------------
// Pushes and resets
// --------------------------------------------------

// Push installs a summary computed elsewhere unless it belongs to another
// week or is older than the cached one.
func (r *Reconciler) Push(s *Summary) bool {
	if s == nil || s.WeekKey != r.weeks.Current() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.WeekKey == s.WeekKey && s.UpdatedAt.Before(r.current.UpdatedAt) {
		return false
	}
	r.current = clone(s)
	r.state = Live
	r.degraded = false
	r.lastRefresh = r.now()
	return true
}

// ResetTo replaces the cache with an all-zero aggregate for m and leaves
// a recompute pending. Recomputes issued before the reset are dropped.
func (r *Reconciler) ResetTo(m menu.Canonical) {
	weekKey := r.weeks.Current()
	seq := r.guard.Issue(guardKey(weekKey))

	s := Zeroed(weekKey, m)
	s.UpdatedAt = r.now()
	s.UpdatedBy = r.cfg.Instance

	r.guard.Apply(guardKey(weekKey), seq, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.current = s
		r.state = Stale
		r.pending = true
	})
}

// MarkPending asks the next tick to recompute.
func (r *Reconciler) MarkPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = true
}

// --------------------------------------------------
// Event loop
// --------------------------------------------------

// Tick recomputes when a refresh is pending and the last one is older
// than the interval, or reloads when the week rolled over.
func (r *Reconciler) Tick(ctx context.Context) {
	r.mu.RLock()
	current := r.current
	due := r.pending && r.now().Sub(r.lastRefresh) >= r.cfg.Interval
	r.mu.RUnlock()

	if current != nil && current.WeekKey != r.weeks.Current() {
		r.log.Info("week rolled over", zap.String("from", current.WeekKey))
		if err := r.Load(ctx); err != nil {
			r.log.Warn("summary reload failed", zap.Error(err))
		}
		return
	}
	if due {
		_, _ = r.Recompute(ctx)
	}
}

// Handle applies one change-feed event.
func (r *Reconciler) Handle(ctx context.Context, ev feed.Event) {
	weekKey := r.weeks.Current()
	if ev.WeekKey != "" && ev.WeekKey != weekKey {
		return
	}

	switch ev.Table {
	case feed.TableOrders:
		_, _ = r.Recompute(ctx)

	case feed.TableSummaries:
		if ev.UserName != "" && ev.UserName != General {
			return
		}
		if ev.Op == feed.OpDelete {
			r.MarkPending()
			return
		}
		snap, err := r.snapshots.Get(ctx, weekKey)
		if err != nil {
			if !errors.Is(err, ErrNoSnapshot) {
				r.log.Warn("pushed snapshot read failed", zap.Error(err))
			}
			r.MarkPending()
			return
		}
		r.Push(snap)
	}
}

// Run loads the summary and then serves events and ticks until ctx is
// done or events is closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan feed.Event) error {
	if err := r.Load(ctx); err != nil {
		r.log.Warn("initial summary load failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ctx, ev)
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}
