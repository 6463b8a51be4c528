package week

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// KeyLayout is the format of every week key: the ISO date of its Monday.
const KeyLayout = "2006-01-02"

var ErrInvalidKey = errors.New("week key must be a Monday in YYYY-MM-DD form")

// Policy decides which Monday anchors "now".
//
// With the cutover disabled the key is always the Monday of the current
// calendar week. With it enabled, from CutoverDay at CutoverHour onward the
// key rolls forward to next week's Monday.
type Policy struct {
	Location       *time.Location
	CutoverEnabled bool
	CutoverDay     time.Weekday
	CutoverHour    int
}

// DefaultPolicy is the calendar-Monday policy in the given location.
func DefaultPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.Local
	}
	return Policy{
		Location:    loc,
		CutoverDay:  time.Friday,
		CutoverHour: 0,
	}
}

// OverrideStore persists an admin-chosen week key.
type OverrideStore interface {
	LoadOverride(ctx context.Context) (string, bool, error)
	SaveOverride(ctx context.Context, key string) error
	ClearOverride(ctx context.Context) error
}

type Resolver struct {
	policy Policy
	now    func() time.Time
	store  OverrideStore

	mu       sync.RWMutex
	override string
}

func NewResolver(policy Policy, store OverrideStore) *Resolver {
	if policy.Location == nil {
		policy.Location = time.Local
	}
	return &Resolver{
		policy: policy,
		now:    time.Now,
		store:  store,
	}
}

// WithClock replaces the wall clock, for tests and the admin CLI.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Load reads a persisted override, if any. A read failure leaves the
// resolver on the computed key.
func (r *Resolver) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	key, ok, err := r.store.LoadOverride(ctx)
	if err != nil {
		return errors.Wrap(err, "load week override")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.override = key
	}
	return nil
}

func (r *Resolver) Policy() Policy { return r.policy }

func (r *Resolver) Location() *time.Location { return r.policy.Location }

// Key returns the week key for t, ignoring any override.
func (r *Resolver) Key(t time.Time) string {
	return Monday(t, r.policy).Format(KeyLayout)
}

// Current returns the override when set, otherwise the key for now.
func (r *Resolver) Current() string {
	r.mu.RLock()
	override := r.override
	r.mu.RUnlock()
	if override != "" {
		return override
	}
	return r.Key(r.now())
}

// Overridden reports whether Current is pinned by an admin.
func (r *Resolver) Overridden() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override != ""
}

func (r *Resolver) Now() time.Time { return r.now().In(r.policy.Location) }

func (r *Resolver) SetOverride(ctx context.Context, key string) error {
	t, err := Parse(key)
	if err != nil {
		return err
	}
	key = t.Format(KeyLayout)
	if r.store != nil {
		if err := r.store.SaveOverride(ctx, key); err != nil {
			return errors.Wrap(err, "save week override")
		}
	}
	r.mu.Lock()
	r.override = key
	r.mu.Unlock()
	return nil
}

func (r *Resolver) ClearOverride(ctx context.Context) error {
	if r.store != nil {
		if err := r.store.ClearOverride(ctx); err != nil {
			return errors.Wrap(err, "clear week override")
		}
	}
	r.mu.Lock()
	r.override = ""
	r.mu.Unlock()
	return nil
}

// Monday returns midnight of the Monday anchoring t under policy p.
// Sunday belongs to the week that started six days earlier.
func Monday(t time.Time, p Policy) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)

	diff := int(time.Monday - t.Weekday())
	if t.Weekday() == time.Sunday {
		diff = -6
	}
	monday := time.Date(t.Year(), t.Month(), t.Day()+diff, 0, 0, 0, 0, loc)

	if p.CutoverEnabled && pastCutover(t, p) {
		monday = monday.AddDate(0, 0, 7)
	}
	return monday
}

// pastCutover compares positions inside the Monday-based week, so a
// Sunday is after a Friday cutover.
func pastCutover(t time.Time, p Policy) bool {
	pos := func(d time.Weekday) int { return (int(d) + 6) % 7 }
	day, cut := pos(t.Weekday()), pos(p.CutoverDay)
	if day != cut {
		return day > cut
	}
	return t.Hour() >= p.CutoverHour
}

// Parse validates a week key.
func Parse(key string) (time.Time, error) {
	t, err := time.Parse(KeyLayout, strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, errors.Wrap(ErrInvalidKey, err.Error())
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, ErrInvalidKey
	}
	return t, nil
}

// ParseWeekday accepts English or Spanish day names.
func ParseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "domingo":
		return time.Sunday, true
	case "monday", "lunes":
		return time.Monday, true
	case "tuesday", "martes":
		return time.Tuesday, true
	case "wednesday", "miercoles", "miércoles":
		return time.Wednesday, true
	case "thursday", "jueves":
		return time.Thursday, true
	case "friday", "viernes":
		return time.Friday, true
	case "saturday", "sabado", "sábado":
		return time.Saturday, true
	}
	return time.Sunday, false
}

// DayDate is the calendar date of the n-th day (0 = Monday) of the week
// identified by key.
func DayDate(key string, n int) (time.Time, error) {
	monday, err := Parse(key)
	if err != nil {
		return time.Time{}, err
	}
	return monday.AddDate(0, 0, n), nil
}
