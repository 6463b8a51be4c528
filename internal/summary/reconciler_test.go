package summary

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"menusemanal/internal/cache"
	"menusemanal/internal/feed"
	"menusemanal/internal/menu"
	"menusemanal/internal/order"
	"menusemanal/internal/storeerr"
	"menusemanal/internal/week"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeMenus struct{ data menu.Canonical }

func (f *fakeMenus) Current(context.Context) (*menu.Loaded, error) {
	return &menu.Loaded{Menu: menu.WeeklyMenu{Data: f.data}}, nil
}

type flakyOrders struct {
	*order.InMemoryRepository
	mu   sync.Mutex
	fail bool
}

func (f *flakyOrders) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyOrders) ListByWeek(ctx context.Context, weekKey string) ([]order.Record, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, storeerr.Read(errors.New("timeout"), "list week orders")
	}
	return f.InMemoryRepository.ListByWeek(ctx, weekKey)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	rec       *Reconciler
	orders    *flakyOrders
	snapshots *InMemorySnapshotRepository
	clock     *clock
	weeks     *week.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)}
	weeks := week.NewResolver(week.DefaultPolicy(time.UTC), nil).WithClock(clk.Now)
	orders := &flakyOrders{InMemoryRepository: order.NewInMemoryRepository()}
	snapshots := NewInMemorySnapshotRepository()

	r := NewReconciler(
		orders,
		&fakeMenus{data: menu.Default()},
		snapshots,
		weeks,
		cache.NewMemoryStore(),
		ReconcilerConfig{Interval: time.Minute, Instance: "test"},
		zaptest.NewLogger(t),
	)
	r.now = clk.Now
	return &fixture{rec: r, orders: orders, snapshots: snapshots, clock: clk, weeks: weeks}
}

func (f *fixture) add(t *testing.T, user, day, option string, count int) {
	t.Helper()
	k := order.Key{WeekKey: testWeek, Day: day, Option: option, UserName: user}
	for i := 0; i < count; i++ {
		_, err := f.orders.Increment(context.Background(), k)
		require.NoError(t, err)
	}
}

func TestReconciler_LoadComputesAndPersistsOnMiss(t *testing.T) {
	f := newFixture(t)
	f.add(t, "ana", "Lunes", "Opción 1", 2)

	_, st, err := f.rec.Current()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Loading, st.State)

	require.NoError(t, f.rec.Load(context.Background()))

	s, st, err := f.rec.Current()
	require.NoError(t, err)
	assert.Equal(t, Live, st.State)
	assert.Equal(t, 2, s.Total())
	assert.Equal(t, "test", s.UpdatedBy)

	snap, err := f.snapshots.Get(context.Background(), testWeek)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total())
}

func TestReconciler_LoadUsesExistingSnapshot(t *testing.T) {
	f := newFixture(t)
	pushed := Aggregate(testWeek, menu.Default(), []order.Record{rec("x", "Lunes", "Opción 1", 9)})
	require.NoError(t, f.snapshots.Put(context.Background(), pushed))

	require.NoError(t, f.rec.Load(context.Background()))

	s, _, err := f.rec.Current()
	require.NoError(t, err)
	assert.Equal(t, 9, s.Total())
}

func TestReconciler_OrderEventRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rec.Load(ctx))

	f.add(t, "ana", "Martes", "Opción 2", 1)
	f.rec.Handle(ctx, feed.Event{Table: feed.TableOrders, Op: feed.OpInsert, WeekKey: testWeek})

	s, _, err := f.rec.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count("Martes", "Opción 2"))

	// events for other weeks are ignored
	f.add(t, "beto", "Martes", "Opción 2", 1)
	f.rec.Handle(ctx, feed.Event{Table: feed.TableOrders, WeekKey: "2024-05-06"})
	s, _, _ = f.rec.Current()
	assert.Equal(t, 1, s.Count("Martes", "Opción 2"))
}

func TestReconciler_PushReplacesUnlessOlder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Load(context.Background()))
	current, _, _ := f.rec.Current()

	older := Aggregate(testWeek, menu.Default(), []order.Record{rec("x", "Lunes", "Opción 1", 5)})
	older.UpdatedAt = current.UpdatedAt.Add(-time.Second)
	assert.False(t, f.rec.Push(older))

	same := Aggregate(testWeek, menu.Default(), []order.Record{rec("x", "Lunes", "Opción 1", 6)})
	same.UpdatedAt = current.UpdatedAt
	assert.True(t, f.rec.Push(same))

	s, _, _ := f.rec.Current()
	assert.Equal(t, 6, s.Total())

	otherWeek := Zeroed("2024-05-06", menu.Default())
	otherWeek.UpdatedAt = current.UpdatedAt.Add(time.Hour)
	assert.False(t, f.rec.Push(otherWeek))
}

func TestReconciler_SnapshotEventPulls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rec.Load(ctx))

	f.clock.Add(time.Second)
	remote := Aggregate(testWeek, menu.Default(), []order.Record{rec("x", "Jueves", "Opción 3", 4)})
	remote.UpdatedAt = f.clock.Now()
	remote.UpdatedBy = "other"
	require.NoError(t, f.snapshots.Put(ctx, remote))

	f.rec.Handle(ctx, feed.Event{Table: feed.TableSummaries, Op: feed.OpUpdate, WeekKey: testWeek, UserName: General})

	s, _, _ := f.rec.Current()
	assert.Equal(t, "other", s.UpdatedBy)
	assert.Equal(t, 4, s.Total())
}

func TestReconciler_FailureGoesStaleThenTickHeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "ana", "Lunes", "Opción 1", 1)
	require.NoError(t, f.rec.Load(ctx))

	f.orders.setFail(true)
	f.add(t, "beto", "Lunes", "Opción 1", 1)
	f.rec.Handle(ctx, feed.Event{Table: feed.TableOrders, WeekKey: testWeek})

	s, st, err := f.rec.Current()
	require.NoError(t, err)
	assert.Equal(t, Stale, st.State)
	assert.True(t, st.Pending)
	assert.Equal(t, 1, s.Total(), "last good aggregate is kept")

	f.orders.setFail(false)
	f.rec.Tick(ctx)
	_, st, _ = f.rec.Current()
	assert.Equal(t, Stale, st.State, "interval has not elapsed")

	f.clock.Add(time.Minute)
	f.rec.Tick(ctx)
	s, st, _ = f.rec.Current()
	assert.Equal(t, Live, st.State)
	assert.False(t, st.Pending)
	assert.Equal(t, 2, s.Total())
}

func TestReconciler_ResetToZeroes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "ana", "Lunes", "Opción 1", 3)
	require.NoError(t, f.rec.Load(ctx))

	f.rec.ResetTo(menu.Canonical{"Lunes": {"Nuevo"}})

	s, st, _ := f.rec.Current()
	assert.Equal(t, 0, s.Total())
	assert.Equal(t, []OptionCount{{Option: "Nuevo", Count: 0}}, s.Days[0].Counts)
	assert.True(t, st.Pending)
}

func TestReconciler_StaleRecomputeDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rec.Load(ctx))

	// a recompute issued before a reset must not land after it
	seq := f.rec.guard.Issue(guardKey(testWeek))
	f.rec.ResetTo(menu.Default())
	applied := f.rec.guard.Apply(guardKey(testWeek), seq, func() {
		t.Fatal("superseded update applied")
	})
	assert.False(t, applied)
}

func TestReconciler_LoadFallsBackToLastGood(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "ana", "Lunes", "Opción 1", 2)
	require.NoError(t, f.rec.Load(ctx))

	// a fresh reconciler sharing the local cache, with the store down
	store := cache.NewMemoryStore()
	lg := cache.NewLastGood[Summary](store, "summary/general")
	s, _, _ := f.rec.Current()
	require.NoError(t, lg.Save(ctx, *s))

	broken := &brokenSnapshots{}
	f.orders.setFail(true)
	r := NewReconciler(f.orders, &fakeMenus{data: menu.Default()}, broken, f.weeks, store,
		ReconcilerConfig{Interval: time.Minute}, zaptest.NewLogger(t))

	require.NoError(t, r.Load(ctx))
	got, st, err := r.Current()
	require.NoError(t, err)
	assert.True(t, st.Degraded)
	assert.Equal(t, Stale, st.State)
	assert.Equal(t, 2, got.Total())
}

type brokenSnapshots struct{}

func (brokenSnapshots) Get(context.Context, string) (*Summary, error) {
	return nil, storeerr.Read(errors.New("down"), "get summary snapshot")
}
func (brokenSnapshots) Put(context.Context, *Summary) error {
	return storeerr.Write(errors.New("down"), "put summary snapshot")
}
func (brokenSnapshots) Delete(context.Context, string) error { return nil }

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	events := make(chan feed.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.rec.Run(ctx, events) }()

	f.add(t, "ana", "Viernes", "Opción 1", 1)
	events <- feed.Event{Table: feed.TableOrders, WeekKey: testWeek}

	require.Eventually(t, func() bool {
		s, _, err := f.rec.Current()
		return err == nil && s.Total() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
