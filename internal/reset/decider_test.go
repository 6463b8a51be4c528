package reset

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"menusemanal/internal/cache"
	"menusemanal/internal/menu"
)

type failingStore struct{ saved bool }

func (f *failingStore) LoadFingerprint(context.Context) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (f *failingStore) SaveFingerprint(context.Context, string) error {
	f.saved = true
	return nil
}

type brokenWrites struct{}

func (brokenWrites) LoadFingerprint(context.Context) (string, bool, error) {
	return "", false, nil
}
func (brokenWrites) SaveFingerprint(context.Context, string) error {
	return errors.New("read-only")
}

func TestDecide_FirstObservationSeeds(t *testing.T) {
	d := NewDecider(cache.NewSettings(cache.NewMemoryStore()), zaptest.NewLogger(t))

	got := d.Decide(context.Background(), menu.Default())
	assert.False(t, got.ShouldReset)
	assert.True(t, got.Seeded)
	assert.Equal(t, menu.Fingerprint(menu.Default()), got.Fingerprint)
}

func TestDecide_SameContentNoReset(t *testing.T) {
	d := NewDecider(cache.NewSettings(cache.NewMemoryStore()), zaptest.NewLogger(t))
	ctx := context.Background()

	d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B"}})
	got := d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B"}})

	assert.False(t, got.ShouldReset)
	assert.False(t, got.Seeded)
}

func TestDecide_AddedOptionResets(t *testing.T) {
	d := NewDecider(cache.NewSettings(cache.NewMemoryStore()), zaptest.NewLogger(t))
	ctx := context.Background()

	d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B"}})
	got := d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B", "C"}})
	assert.True(t, got.ShouldReset)

	// not remembered until the reset is committed
	again := d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B", "C"}})
	assert.True(t, again.ShouldReset)

	require.NoError(t, d.Commit(ctx, got.Fingerprint))
	got = d.Decide(ctx, menu.Canonical{"Lunes": {"A", "B", "C"}})
	assert.False(t, got.ShouldReset)
}

func TestCommit_WriteFailure(t *testing.T) {
	d := NewDecider(&brokenWrites{}, zaptest.NewLogger(t))
	assert.Error(t, d.Commit(context.Background(), "fp"))
}

func TestDecide_ReadFailureNeverResets(t *testing.T) {
	store := &failingStore{}
	d := NewDecider(store, zaptest.NewLogger(t))

	got := d.Decide(context.Background(), menu.Canonical{"Lunes": {"A"}})
	assert.False(t, got.ShouldReset)
	assert.False(t, got.Seeded)
	assert.False(t, store.saved)
}
