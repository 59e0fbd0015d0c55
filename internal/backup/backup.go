// Package backup exports and restores full snapshots of the entity store.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

const FormatVersion = "1.0"

// Snapshot is the backup artifact. Settings is null when none were saved.
type Snapshot struct {
	Users        []domain.User        `json:"users"`
	Products     []domain.Product     `json:"products"`
	Categories   []domain.Category    `json:"categories"`
	Transactions []domain.Transaction `json:"transactions"`
	ActivityLogs []domain.ActivityLog `json:"activityLogs"`
	Settings     *domain.Settings     `json:"settings"`
	ExportDate   time.Time            `json:"exportDate"`
	Version      string               `json:"version"`
}

type Service struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(s store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: s,
		log:   log.With("component", "backup"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Backup reads every kind inside one consistent view.
func (s *Service) Backup(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{ExportDate: s.now(), Version: FormatVersion}
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if snap.Users, err = tx.ListUsers(); err != nil {
			return err
		}
		if snap.Products, err = tx.ListProducts(); err != nil {
			return err
		}
		if snap.Categories, err = tx.ListCategories(); err != nil {
			return err
		}
		if snap.Transactions, err = tx.ListTransactions(); err != nil {
			return err
		}
		if snap.ActivityLogs, err = tx.ListActivityLogs(); err != nil {
			return err
		}
		settings, ok, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if ok {
			snap.Settings = &settings
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Export writes the backup as indented JSON.
func (s *Service) Export(ctx context.Context, w io.Writer) (Snapshot, error) {
	snap, err := s.Backup(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return Snapshot{}, fmt.Errorf("encode backup: %w", err)
	}
	return snap, nil
}

// Restore parses and validates data, then replaces the whole store with it.
func (s *Service) Restore(ctx context.Context, data []byte) (Snapshot, error) {
	snap, err := Parse(data)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.RestoreSnapshot(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// RestoreSnapshot clears every kind and loads snap in one atomic update. A
// failure leaves the store as it was.
func (s *Service) RestoreSnapshot(ctx context.Context, snap Snapshot) error {
	if err := validate(snap); err != nil {
		return err
	}

	err := s.store.Update(ctx, store.AllKinds, func(tx store.Tx) error {
		for _, kind := range store.EntityKinds {
			if err := tx.Clear(kind); err != nil {
				return err
			}
		}
		if err := tx.DeleteMeta(store.MetaDataCleared); err != nil {
			return err
		}
		for _, c := range snap.Categories {
			if err := tx.PutCategory(c); err != nil {
				return err
			}
		}
		for _, u := range snap.Users {
			if err := tx.PutUser(u); err != nil {
				return err
			}
		}
		for _, p := range snap.Products {
			if err := tx.PutProduct(p); err != nil {
				return err
			}
		}
		for _, t := range snap.Transactions {
			if err := tx.PutTransaction(t); err != nil {
				return err
			}
		}
		for _, e := range snap.ActivityLogs {
			if err := tx.PutActivityLog(e); err != nil {
				return err
			}
		}
		if snap.Settings != nil {
			return tx.PutSettings(*snap.Settings)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("restored backup",
		"export_date", snap.ExportDate,
		"users", len(snap.Users),
		"products", len(snap.Products),
		"categories", len(snap.Categories),
		"transactions", len(snap.Transactions),
		"activity_logs", len(snap.ActivityLogs))
	return nil
}

// ClearAll empties every kind but settings, resets settings to defaults and
// records that the store was cleared on purpose.
func (s *Service) ClearAll(ctx context.Context) error {
	now := s.now()
	err := s.store.Update(ctx, store.AllKinds, func(tx store.Tx) error {
		for _, kind := range store.EntityKinds {
			if kind == store.KindSettings {
				continue
			}
			if err := tx.Clear(kind); err != nil {
				return err
			}
		}
		if err := tx.PutSettings(domain.DefaultSettings(now)); err != nil {
			return err
		}
		return tx.PutMeta(store.MetaDataCleared, now.Format(time.RFC3339))
	})
	if err != nil {
		return err
	}
	s.log.Warn("all data cleared")
	return nil
}

func (s *Service) WasCleared(ctx context.Context) (bool, error) {
	var cleared bool
	err := s.store.View(ctx, func(tx store.Tx) error {
		_, ok, err := tx.GetMeta(store.MetaDataCleared)
		cleared = ok
		return err
	})
	return cleared, err
}

var requiredKeys = []string{"users", "products", "categories", "transactions"}

// Parse decodes a backup artifact, failing with store.ErrInvalidFormat when
// it is not a version 1.0 snapshot.
func Parse(data []byte) (Snapshot, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return Snapshot{}, fmt.Errorf("%w: backup is not a JSON object: %v", store.ErrInvalidFormat, err)
	}
	for _, key := range requiredKeys {
		raw, ok := keys[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return Snapshot{}, fmt.Errorf("%w: backup is missing %q", store.ErrInvalidFormat, key)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", store.ErrInvalidFormat, err)
	}
	if snap.Version != FormatVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported backup version %q", store.ErrInvalidFormat, snap.Version)
	}
	return snap, nil
}

func validate(snap Snapshot) error {
	if snap.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported backup version %q", store.ErrInvalidFormat, snap.Version)
	}

	var errs []error
	check := func(kind store.Kind, id string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", kind, id, err))
		}
	}
	for _, u := range snap.Users {
		check(store.KindUsers, u.ID, u.Validate())
	}
	for _, p := range snap.Products {
		check(store.KindProducts, p.ID, p.Validate())
	}
	for _, c := range snap.Categories {
		check(store.KindCategories, c.ID, c.Validate())
	}
	for _, t := range snap.Transactions {
		check(store.KindTransactions, t.ID, t.Validate())
	}
	for _, e := range snap.ActivityLogs {
		check(store.KindActivityLogs, e.ID, e.Validate())
	}
	if snap.Settings != nil {
		check(store.KindSettings, snap.Settings.ID, snap.Settings.Validate())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", store.ErrInvalidFormat, errors.Join(errs...))
	}
	return nil
}
