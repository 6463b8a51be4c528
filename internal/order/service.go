package order

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"menusemanal/internal/menu"
	"menusemanal/internal/week"
)

var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownDay     = errors.New("unknown day")
	ErrUnknownOption  = errors.New("option is not on this week's menu")
	ErrNoOrderForDay  = errors.New("no order for that day, add a dish before commenting")
	ErrCommentIndex   = errors.New("comment index out of range")
	ErrInvalidRequest = errors.New("invalid request")
)

// MenuSource yields the menu currently in effect.
type MenuSource interface {
	Current(ctx context.Context) (*menu.Loaded, error)
}

type Roster interface {
	Contains(name string) bool
}

// ChangeFunc is called after every successful write.
type ChangeFunc func(ctx context.Context, weekKey, user string)

type Service struct {
	repo     Repository
	menus    MenuSource
	roster   Roster
	weeks    *week.Resolver
	validate *validator.Validate
	log      *zap.Logger

	mu        sync.RWMutex
	listeners []ChangeFunc
}

func NewService(
	repo Repository,
	menus MenuSource,
	roster Roster,
	weeks *week.Resolver,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		menus:    menus,
		roster:   roster,
		weeks:    weeks,
		validate: validator.New(),
		log:      log.Named("order"),
	}
}

func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) changed(ctx context.Context, weekKey, user string) {
	s.mu.RLock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, weekKey, user)
	}
}

// NormalizeUser trims and lower-cases a user name.
func NormalizeUser(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Service) checkUser(name string) (string, error) {
	user := NormalizeUser(name)
	if user == "" {
		return "", ErrUnknownUser
	}
	if s.roster != nil && !s.roster.Contains(user) {
		return "", ErrUnknownUser
	}
	return user, nil
}

func (s *Service) checkBody(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	return nil
}

// --------------------------------------------------
// Read: the user's week
// --------------------------------------------------
func (s *Service) Week(ctx context.Context, name string) (*UserWeek, error) {
	user, err := s.checkUser(name)
	if err != nil {
		return nil, err
	}
	loaded, err := s.menus.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, user, loaded)
}

// Summary is the "mis pedidos" view: only options with a count and days
// with something on them.
func (s *Service) Summary(ctx context.Context, name string) (*UserWeek, error) {
	w, err := s.Week(ctx, name)
	if err != nil {
		return nil, err
	}

	days := make([]UserDay, 0, len(w.Days))
	for _, d := range w.Days {
		counts := make([]OptionCount, 0, len(d.Counts))
		for _, c := range d.Counts {
			if c.Count > 0 {
				counts = append(counts, c)
			}
		}
		if len(counts) == 0 && len(d.Comments) == 0 {
			continue
		}
		days = append(days, UserDay{Day: d.Day, Counts: counts, Comments: d.Comments})
	}
	w.Days = days
	return w, nil
}

func (s *Service) view(ctx context.Context, user string, loaded *menu.Loaded) (*UserWeek, error) {
	weekKey := s.weeks.Current()
	records, err := s.repo.ListByUser(ctx, weekKey, user)
	if err != nil {
		return nil, err
	}
	return BuildUserWeek(weekKey, user, loaded.Menu.Data, records, loaded.Degraded), nil
}

// BuildUserWeek lays records out over the menu. Options no longer on the
// menu still show while their count is positive.
func BuildUserWeek(weekKey, user string, m menu.Canonical, records []Record, degraded bool) *UserWeek {
	type dayState struct {
		counts   map[string]int
		extra    []string
		comments []string
	}

	state := make(map[string]*dayState)
	get := func(day string) *dayState {
		st, ok := state[day]
		if !ok {
			st = &dayState{counts: make(map[string]int), comments: []string{}}
			state[day] = st
		}
		return st
	}

	for _, rec := range records {
		if menu.DayIndex(rec.Day) < 0 {
			continue
		}
		st := get(rec.Day)
		if _, seen := st.counts[rec.Option]; !seen && !m.Has(rec.Day, rec.Option) {
			st.extra = append(st.extra, rec.Option)
		}
		st.counts[rec.Option] = rec.Count
		// records come oldest first, so the last row seen holds the
		// current comment list
		st.comments = append([]string{}, rec.Comments...)
	}

	w := &UserWeek{WeekKey: weekKey, UserName: user, Days: []UserDay{}, Degraded: degraded}
	for _, day := range menu.Days {
		opts := m.Options(day)
		st := state[day]
		if len(opts) == 0 && st == nil {
			continue
		}

		ud := UserDay{Day: day, Counts: []OptionCount{}, Comments: []string{}}
		for _, opt := range opts {
			n := 0
			if st != nil {
				n = st.counts[opt]
			}
			ud.Counts = append(ud.Counts, OptionCount{Option: opt, Count: n})
			w.Total += n
		}
		if st != nil {
			for _, opt := range st.extra {
				if n := st.counts[opt]; n > 0 {
					ud.Counts = append(ud.Counts, OptionCount{Option: opt, Count: n})
					w.Total += n
				}
			}
			ud.Comments = st.comments
		}
		w.Days = append(w.Days, ud)
	}
	return w
}

// --------------------------------------------------
// Write: counters
// --------------------------------------------------
func (s *Service) Increment(ctx context.Context, name string, m Mutation) (*UserWeek, error) {
	user, day, loaded, err := s.prepare(ctx, name, m)
	if err != nil {
		return nil, err
	}
	weekKey := s.weeks.Current()
	option := strings.TrimSpace(m.Option)

	if !loaded.Menu.Data.Has(day, option) {
		// rows created under an earlier menu may still be adjusted
		exists, err := s.hasRow(ctx, Key{weekKey, day, option, user})
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrUnknownOption
		}
	}

	rec, err := s.repo.Increment(ctx, Key{weekKey, day, option, user})
	if err != nil {
		s.log.Error("increment failed", zap.String("user", user), zap.Error(err))
		return nil, err
	}
	s.log.Debug("order incremented",
		zap.String("user", user),
		zap.String("day", day),
		zap.String("option", option),
		zap.Int("count", rec.Count),
	)

	s.changed(ctx, weekKey, user)
	return s.view(ctx, user, loaded)
}

func (s *Service) Decrement(ctx context.Context, name string, m Mutation) (*UserWeek, error) {
	user, day, loaded, err := s.prepare(ctx, name, m)
	if err != nil {
		return nil, err
	}
	weekKey := s.weeks.Current()

	_, err = s.repo.Decrement(ctx, Key{weekKey, day, strings.TrimSpace(m.Option), user})
	switch {
	case errors.Is(err, ErrNotFound):
		return s.view(ctx, user, loaded)
	case err != nil:
		s.log.Error("decrement failed", zap.String("user", user), zap.Error(err))
		return nil, err
	}

	s.changed(ctx, weekKey, user)
	return s.view(ctx, user, loaded)
}

func (s *Service) prepare(ctx context.Context, name string, m Mutation) (string, string, *menu.Loaded, error) {
	if err := s.checkBody(m); err != nil {
		return "", "", nil, err
	}
	user, err := s.checkUser(name)
	if err != nil {
		return "", "", nil, err
	}
	day, ok := menu.CanonicalDay(m.Day)
	if !ok {
		return "", "", nil, ErrUnknownDay
	}
	loaded, err := s.menus.Current(ctx)
	if err != nil {
		return "", "", nil, err
	}
	return user, day, loaded, nil
}

func (s *Service) hasRow(ctx context.Context, k Key) (bool, error) {
	records, err := s.repo.ListByUser(ctx, k.WeekKey, k.UserName)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.Key() == k {
			return true, nil
		}
	}
	return false, nil
}

// --------------------------------------------------
// Write: comments
// --------------------------------------------------

// StripAuthor removes a trailing " (user)" annotation so the stored text
// is the raw comment.
func StripAuthor(text, user string) string {
	text = strings.TrimSpace(text)
	suffix := " (" + user + ")"
	if len(text) > len(suffix) && strings.EqualFold(text[len(text)-len(suffix):], suffix) {
		return strings.TrimSpace(text[:len(text)-len(suffix)])
	}
	return text
}

func (s *Service) AddComment(ctx context.Context, name string, in CommentInput) (*UserWeek, error) {
	if err := s.checkBody(in); err != nil {
		return nil, err
	}
	user, err := s.checkUser(name)
	if err != nil {
		return nil, err
	}
	day, ok := menu.CanonicalDay(in.Day)
	if !ok {
		return nil, ErrUnknownDay
	}
	text := StripAuthor(in.Text, user)
	if text == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "empty comment")
	}

	comments, err := s.dayComments(ctx, user, day)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c == text {
			return s.Week(ctx, user)
		}
	}

	return s.writeComments(ctx, user, day, append(comments, text))
}

func (s *Service) RemoveComment(ctx context.Context, name, dayLabel string, index int) (*UserWeek, error) {
	user, err := s.checkUser(name)
	if err != nil {
		return nil, err
	}
	day, ok := menu.CanonicalDay(dayLabel)
	if !ok {
		return nil, ErrUnknownDay
	}

	comments, err := s.dayComments(ctx, user, day)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(comments) {
		return nil, ErrCommentIndex
	}

	next := append(append([]string{}, comments[:index]...), comments[index+1:]...)
	return s.writeComments(ctx, user, day, next)
}

// dayComments returns the user's current comment list for day, or
// ErrNoOrderForDay when the user has no row that day.
func (s *Service) dayComments(ctx context.Context, user, day string) ([]string, error) {
	records, err := s.repo.ListByUser(ctx, s.weeks.Current(), user)
	if err != nil {
		return nil, err
	}
	var (
		found    bool
		comments []string
	)
	for _, rec := range records {
		if rec.Day == day {
			found = true
			comments = append([]string{}, rec.Comments...)
		}
	}
	if !found {
		return nil, ErrNoOrderForDay
	}
	return comments, nil
}

func (s *Service) writeComments(ctx context.Context, user, day string, comments []string) (*UserWeek, error) {
	weekKey := s.weeks.Current()
	n, err := s.repo.SetComments(ctx, weekKey, day, user, comments)
	if err != nil {
		s.log.Error("comment update failed", zap.String("user", user), zap.Error(err))
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoOrderForDay
	}

	s.changed(ctx, weekKey, user)
	return s.Week(ctx, user)
}

// --------------------------------------------------
// Admin
// --------------------------------------------------
func (s *Service) ClearComments(ctx context.Context) (int64, error) {
	weekKey := s.weeks.Current()
	n, err := s.repo.ClearComments(ctx, weekKey)
	if err != nil {
		return 0, err
	}
	s.log.Info("comments cleared", zap.String("week", weekKey), zap.Int64("rows", n))
	s.changed(ctx, weekKey, "")
	return n, nil
}

func (s *Service) ResetWeek(ctx context.Context) (int64, error) {
	weekKey := s.weeks.Current()
	n, err := s.repo.DeleteWeek(ctx, weekKey, time.Time{})
	if err != nil {
		return 0, err
	}
	s.log.Info("week orders reset", zap.String("week", weekKey), zap.Int64("rows", n))
	s.changed(ctx, weekKey, "")
	return n, nil
}
