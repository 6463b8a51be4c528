package cache

import (
	"context"
)

const (
	keyWeekOverride = "settings/week_override"
	keyFingerprint  = "settings/menu_fingerprint"
	keyLastEmailed  = "settings/last_emailed_week"
)

// Settings are small local values that several components read. It
// satisfies week.OverrideStore and reset.FingerprintStore.
type Settings struct {
	store Store
}

func NewSettings(store Store) *Settings {
	return &Settings{store: store}
}

func (s *Settings) getString(ctx context.Context, key string) (string, bool, error) {
	e, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(e.Value), true, nil
}

func (s *Settings) LoadOverride(ctx context.Context) (string, bool, error) {
	return s.getString(ctx, keyWeekOverride)
}

func (s *Settings) SaveOverride(ctx context.Context, key string) error {
	return s.store.Put(ctx, keyWeekOverride, []byte(key))
}

func (s *Settings) ClearOverride(ctx context.Context) error {
	return s.store.Delete(ctx, keyWeekOverride)
}

func (s *Settings) LoadFingerprint(ctx context.Context) (string, bool, error) {
	return s.getString(ctx, keyFingerprint)
}

func (s *Settings) SaveFingerprint(ctx context.Context, fp string) error {
	return s.store.Put(ctx, keyFingerprint, []byte(fp))
}

func (s *Settings) LastEmailedWeek(ctx context.Context) (string, bool, error) {
	return s.getString(ctx, keyLastEmailed)
}

func (s *Settings) MarkEmailed(ctx context.Context, weekKey string) error {
	return s.store.Put(ctx, keyLastEmailed, []byte(weekKey))
}
