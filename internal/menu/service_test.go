package menu

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"menusemanal/internal/cache"
	"menusemanal/internal/storeerr"
	"menusemanal/internal/week"
)

type flakyRepository struct {
	*InMemoryRepository
	fail bool
}

func (r *flakyRepository) Latest(ctx context.Context) (*WeeklyMenu, error) {
	if r.fail {
		return nil, storeerr.Read(errors.New("connection refused"), "latest menu")
	}
	return r.InMemoryRepository.Latest(ctx)
}

type memArchive struct {
	keys   []string
	bodies [][]byte
}

func (a *memArchive) Archive(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	a.keys = append(a.keys, key)
	a.bodies = append(a.bodies, data)
	return "https://files.example/" + key, nil
}

func newTestService(t *testing.T, repo Repository, archive Archiver) *Service {
	t.Helper()
	weeks := week.NewResolver(week.DefaultPolicy(time.UTC), nil).
		WithClock(func() time.Time { return time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC) })
	return NewService(repo, archive, cache.NewMemoryStore(), weeks, zaptest.NewLogger(t))
}

const csvMenu = "Menu\nDia,A,B\nLunes,Guiso,Tarta\nMartes,Fideos\n"

func TestService_UploadStoresAndNotifies(t *testing.T) {
	repo := NewInMemoryRepository()
	archive := &memArchive{}
	svc := newTestService(t, repo, archive)

	var seen []*WeeklyMenu
	svc.Observe(func(_ context.Context, m *WeeklyMenu) { seen = append(seen, m) })

	m, err := svc.Upload(context.Background(), "semana.csv", strings.NewReader(csvMenu))
	require.NoError(t, err)

	assert.Equal(t, "2024-05-13", m.WeekKey)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, Canonical{"Lunes": {"Guiso", "Tarta"}, "Martes": {"Fideos"}}, m.Data)

	require.Len(t, seen, 1)
	assert.Equal(t, m.ID, seen[0].ID)

	require.Len(t, archive.keys, 1)
	assert.True(t, strings.HasPrefix(archive.keys[0], "menus/2024-05-13/"))
	assert.True(t, strings.HasSuffix(archive.keys[0], ".csv"))
	assert.Equal(t, csvMenu, string(archive.bodies[0]))

	loaded, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded.Degraded)
	assert.False(t, loaded.Default)
	assert.Equal(t, m.Data, loaded.Menu.Data)
}

func TestService_UploadRejectsInvalidMenu(t *testing.T) {
	svc := newTestService(t, NewInMemoryRepository(), nil)

	_, err := svc.Upload(context.Background(), "x.csv", strings.NewReader("a\nb\nDomingo,Asado\n"))
	assert.True(t, errors.Is(err, ErrInvalidMenu))

	_, err = svc.Upload(context.Background(), "x.txt", bytes.NewReader(nil))
	assert.True(t, errors.Is(err, ErrFileExtension))
}

func TestService_CurrentDefaultsWhenNothingStored(t *testing.T) {
	svc := newTestService(t, NewInMemoryRepository(), nil)

	loaded, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Default)
	assert.Equal(t, Default(), loaded.Menu.Data)
}

func TestService_CurrentFallsBackToCache(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: NewInMemoryRepository()}
	svc := newTestService(t, repo, nil)

	_, err := svc.Save(context.Background(), map[string][]string{"lunes": {"Guiso"}})
	require.NoError(t, err)

	repo.fail = true
	loaded, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Degraded)
	assert.Equal(t, Canonical{"Lunes": {"Guiso"}}, loaded.Menu.Data)
}

func TestService_CurrentSurfacesReadErrorWithoutCache(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: NewInMemoryRepository(), fail: true}
	svc := newTestService(t, repo, nil)

	_, err := svc.Current(context.Background())
	assert.True(t, storeerr.IsRead(err))
}

func TestInMemoryRepository_LatestWins(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(context.Background(), &WeeklyMenu{
		Data: Canonical{"Lunes": {"new"}}, UpdatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, repo.Insert(context.Background(), &WeeklyMenu{
		Data: Canonical{"Lunes": {"old"}}, UpdatedAt: base,
	}))

	m, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, m.Data["Lunes"])
}
