// Package reset decides whether a newly loaded menu is a real change that
// should wipe the week's counters.
package reset

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"menusemanal/internal/menu"
)

// FingerprintStore remembers the fingerprint of the last menu seen.
type FingerprintStore interface {
	LoadFingerprint(ctx context.Context) (string, bool, error)
	SaveFingerprint(ctx context.Context, fp string) error
}

type Decision struct {
	ShouldReset bool   `json:"should_reset"`
	Fingerprint string `json:"fingerprint"`
	// Seeded is set when there was no previous fingerprint.
	Seeded bool `json:"seeded"`
}

type Decider struct {
	store FingerprintStore
	log   *zap.Logger
}

func NewDecider(store FingerprintStore, log *zap.Logger) *Decider {
	return &Decider{store: store, log: log.Named("reset")}
}

// Decide compares m with the remembered fingerprint. The first menu ever
// seen only seeds the store. When the remembered fingerprint cannot be
// read the answer is no reset and the store is left alone. A reset
// decision is not remembered until Commit, so a failed reset is decided
// again on the next check.
func (d *Decider) Decide(ctx context.Context, m menu.Canonical) Decision {
	fp := menu.Fingerprint(m)

	prev, ok, err := d.store.LoadFingerprint(ctx)
	if err != nil {
		d.log.Warn("fingerprint read failed, not resetting", zap.Error(err))
		return Decision{Fingerprint: fp}
	}

	if !ok {
		d.save(ctx, fp)
		d.log.Info("menu fingerprint seeded", zap.String("fingerprint", fp))
		return Decision{Fingerprint: fp, Seeded: true}
	}

	if prev == fp {
		return Decision{Fingerprint: fp}
	}

	d.log.Info("menu changed",
		zap.String("previous", prev),
		zap.String("fingerprint", fp),
	)
	return Decision{ShouldReset: true, Fingerprint: fp}
}

// Commit remembers fp once the reset it triggered has been carried out.
func (d *Decider) Commit(ctx context.Context, fp string) error {
	if err := d.store.SaveFingerprint(ctx, fp); err != nil {
		return errors.Wrap(err, "save menu fingerprint")
	}
	return nil
}

func (d *Decider) save(ctx context.Context, fp string) {
	if err := d.store.SaveFingerprint(ctx, fp); err != nil {
		d.log.Warn("fingerprint write failed", zap.Error(err))
	}
}
