package menu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"menusemanal/internal/cache"
	"menusemanal/internal/week"
)

const maxUploadBytes = 5 << 20

// Archiver keeps a copy of uploaded files. It is optional.
type Archiver interface {
	Archive(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Observer is told about every menu stored through this service.
type Observer func(ctx context.Context, m *WeeklyMenu)

// Loaded is the menu currently in effect and where it came from.
type Loaded struct {
	Menu     WeeklyMenu `json:"menu"`
	Degraded bool       `json:"degraded"`
	Default  bool       `json:"default"`
}

type Service struct {
	repo     Repository
	archive  Archiver
	lastGood *cache.LastGood[WeeklyMenu]
	weeks    *week.Resolver
	log      *zap.Logger

	mu        sync.RWMutex
	observers []Observer
}

func NewService(
	repo Repository,
	archive Archiver,
	store cache.Store,
	weeks *week.Resolver,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		archive:  archive,
		lastGood: cache.NewLastGood[WeeklyMenu](store, "menu/latest"),
		weeks:    weeks,
		log:      log.Named("menu"),
	}
}

func (s *Service) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// --------------------------------------------------
// Upload Menu (parse -> normalise -> archive -> store)
// --------------------------------------------------
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*WeeklyMenu, error) {
	if err := ValidateFileExtension(filename); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if len(body) > maxUploadBytes {
		return nil, errors.New("menu file too large")
	}

	raw, err := ParseFile(filename, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	data, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	return s.store(ctx, data, filename, body)
}

// Save stores an already parsed menu, e.g. from the admin CLI.
func (s *Service) Save(ctx context.Context, raw map[string][]string) (*WeeklyMenu, error) {
	data, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, data, "", nil)
}

func (s *Service) store(ctx context.Context, data Canonical, filename string, body []byte) (*WeeklyMenu, error) {
	weekKey := s.weeks.Current()

	if s.archive != nil && body != nil {
		key := fmt.Sprintf(
			"menus/%s/%s%s",
			weekKey,
			uuid.New().String(),
			strings.ToLower(filepath.Ext(filename)),
		)
		if url, err := s.archive.Archive(ctx, key, bytes.NewReader(body), contentType(filename)); err != nil {
			// the menu itself is what matters
			s.log.Warn("menu archive failed", zap.String("key", key), zap.Error(err))
		} else {
			s.log.Info("menu archived", zap.String("url", url))
		}
	}

	m := &WeeklyMenu{
		Data:    data,
		WeekKey: weekKey,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}

	if err := s.lastGood.Save(ctx, *m); err != nil {
		s.log.Warn("menu cache write failed", zap.Error(err))
	}

	s.log.Info("menu stored",
		zap.String("id", m.ID),
		zap.String("week", m.WeekKey),
		zap.Int("days", len(m.Data)),
	)

	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(ctx, m)
	}

	return m, nil
}

// --------------------------------------------------
// Current Menu (latest row, cached fallback)
// --------------------------------------------------

// Current returns the most recently stored menu. On a read failure it
// serves the last good menu from the local cache and flags the result as
// degraded; with no stored menu at all it serves Default.
func (s *Service) Current(ctx context.Context) (*Loaded, error) {
	m, err := s.repo.Latest(ctx)
	switch {
	case err == nil:
		data, nerr := Normalize(m.Data)
		if nerr != nil {
			s.log.Warn("stored menu has no valid days, serving default", zap.String("id", m.ID))
			return s.fallbackDefault(), nil
		}
		m.Data = data
		if cerr := s.lastGood.Save(ctx, *m); cerr != nil {
			s.log.Warn("menu cache write failed", zap.Error(cerr))
		}
		return &Loaded{Menu: *m}, nil

	case errors.Is(err, ErrNoMenu):
		return s.fallbackDefault(), nil
	}

	cached, _, ok, cerr := s.lastGood.Load(ctx, 0)
	if cerr != nil {
		s.log.Warn("menu cache read failed", zap.Error(cerr))
	}
	if !ok {
		return nil, err
	}
	s.log.Warn("serving cached menu", zap.Error(err))
	return &Loaded{Menu: cached, Degraded: true}, nil
}

func (s *Service) fallbackDefault() *Loaded {
	return &Loaded{
		Menu: WeeklyMenu{
			Data:    Default(),
			WeekKey: s.weeks.Current(),
		},
		Default: true,
	}
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}
