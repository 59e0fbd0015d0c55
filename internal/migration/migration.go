// Package migration moves data from the legacy flat key-value blob into the
// entity store, once.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kasirlokal/internal/store"
)

// Order matters: categories before the products that reference them, users
// before transactions.
var kindOrder = []store.Kind{
	store.KindCategories,
	store.KindUsers,
	store.KindProducts,
	store.KindTransactions,
	store.KindActivityLogs,
	store.KindSettings,
}

type KindReport struct {
	Kind     store.Kind `json:"kind"`
	Migrated int        `json:"migrated"`
	Skipped  int        `json:"skipped"`
	Failed   bool       `json:"failed"`
	Error    string     `json:"error,omitempty"`
}

type Report struct {
	AlreadyCompleted bool         `json:"alreadyCompleted"`
	LegacyDataFound  bool         `json:"legacyDataFound"`
	Completed        bool         `json:"completed"`
	Kinds            []KindReport `json:"kinds"`
}

func (r Report) Failed() bool {
	for _, k := range r.Kinds {
		if k.Failed {
			return true
		}
	}
	return false
}

type Migrator struct {
	store  store.Store
	source LegacySource
	log    *slog.Logger
	now    func() time.Time
}

func New(s store.Store, source LegacySource, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	if source == nil {
		source = BytesSource(nil)
	}
	return &Migrator{
		store:  s,
		source: source,
		log:    log.With("component", "migration"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Migrator) Completed(ctx context.Context) (bool, error) {
	var done bool
	err := m.store.View(ctx, func(tx store.Tx) error {
		_, ok, err := tx.GetMeta(store.MetaMigrationCompleted)
		done = ok
		return err
	})
	return done, err
}

// Run migrates the legacy blob unless the completion marker is already set.
// Each kind commits on its own; the marker is only set when every kind
// succeeded so a later run can retry.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	done, err := m.Completed(ctx)
	if err != nil {
		return Report{}, err
	}
	if done {
		return Report{AlreadyCompleted: true, Completed: true}, nil
	}

	data, ok, err := m.source.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	if !ok {
		m.log.Info("no legacy data found")
		if err := m.markCompleted(ctx); err != nil {
			return Report{}, err
		}
		return Report{Completed: true}, nil
	}

	report := Report{LegacyDataFound: true}
	if err := m.archive(ctx, data); err != nil {
		return report, err
	}
	state, err := decodeLegacy(data)
	if err != nil {
		return report, err
	}

	for _, kind := range kindOrder {
		report.Kinds = append(report.Kinds, m.migrateKind(ctx, kind, state.kinds[kind]))
	}
	if report.Failed() {
		m.log.Warn("legacy migration incomplete; completion marker not set")
		return report, nil
	}
	if err := m.markCompleted(ctx); err != nil {
		return report, err
	}
	report.Completed = true
	m.log.Info("legacy migration completed")
	return report, nil
}

// ForceRemigrate clears the completion marker and runs again. Records that
// already exist are skipped, so repeated runs never duplicate.
func (m *Migrator) ForceRemigrate(ctx context.Context) (Report, error) {
	err := m.store.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.DeleteMeta(store.MetaMigrationCompleted)
	})
	if err != nil {
		return Report{}, err
	}
	return m.Run(ctx)
}

func (m *Migrator) migrateKind(ctx context.Context, kind store.Kind, records []record) KindReport {
	kr := KindReport{Kind: kind}
	if len(records) == 0 {
		return kr
	}

	var migrated, skipped int
	err := m.store.Update(ctx, []store.Kind{kind}, func(tx store.Tx) error {
		migrated, skipped = 0, 0
		for i, rec := range records {
			err := m.writeRecord(tx, kind, i, rec)
			if errors.Is(err, errSkip) {
				skipped++
				continue
			}
			if err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		m.log.Warn("failed to migrate kind", "kind", kind, "error", err)
		kr.Failed = true
		kr.Error = err.Error()
		return kr
	}

	kr.Migrated, kr.Skipped = migrated, skipped
	m.log.Info("migrated kind", "kind", kind, "migrated", migrated, "skipped", skipped)
	return kr
}

var errSkip = errors.New("skip record")

func (m *Migrator) skip(kind store.Kind, id string, reason string, args ...any) error {
	m.log.Warn("skipping legacy record", "kind", kind, "id", id, "reason", fmt.Sprintf(reason, args...))
	return errSkip
}

func (m *Migrator) archive(ctx context.Context, data []byte) error {
	return m.store.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.PutMeta(store.MetaLegacyBackup, string(data))
	})
}

func (m *Migrator) markCompleted(ctx context.Context) error {
	return m.store.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.PutMeta(store.MetaMigrationCompleted, m.now().Format(time.RFC3339))
	})
}
