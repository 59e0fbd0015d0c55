package service

import (
	"context"
	"strings"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

type SettingsService struct {
	*base
	activity *ActivityLogService
}

// GetOrCreate returns the settings singleton, writing the defaults first if
// none exist yet.
func (s *SettingsService) GetOrCreate(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if ok {
			settings = found
		}
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	if settings.ID != "" {
		return settings, nil
	}

	err = s.update(ctx, []store.Kind{store.KindSettings}, func(tx store.Tx) error {
		found, ok, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if ok {
			settings = found
			return nil
		}
		settings = domain.DefaultSettings(s.now())
		return tx.PutSettings(settings)
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if !ok {
			return notFound("settings", domain.SettingsID)
		}
		settings = found
		return nil
	})
	return settings, err
}

func (s *SettingsService) Update(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	var settings domain.Settings
	err := s.update(ctx, []store.Kind{store.KindSettings}, func(tx store.Tx) error {
		existing, ok, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if !ok {
			return notFound("settings", domain.SettingsID)
		}
		if req.StoreName != nil {
			existing.StoreName = strings.TrimSpace(*req.StoreName)
		}
		if req.StoreAddress != nil {
			existing.StoreAddress = strings.TrimSpace(*req.StoreAddress)
		}
		if req.StorePhone != nil {
			existing.StorePhone = strings.TrimSpace(*req.StorePhone)
		}
		if req.Currency != nil {
			existing.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
		}
		if req.LowStockThreshold != nil {
			existing.LowStockThreshold = *req.LowStockThreshold
		}
		if req.ReceiptFooter != nil {
			existing.ReceiptFooter = *req.ReceiptFooter
		}
		if req.Printer != nil {
			existing.Printer = *req.Printer
		}
		existing.UpdatedAt = s.now()
		settings = existing
		return tx.PutSettings(existing)
	})
	if err != nil {
		return domain.Settings{}, err
	}

	s.activity.Record(ctx, "settings_update", "settings", settings.ID, "")
	return settings, nil
}

func (s *SettingsService) GetPrinterSettings(ctx context.Context) (domain.PrinterSettings, error) {
	settings, err := s.GetOrCreate(ctx)
	if err != nil {
		return domain.PrinterSettings{}, err
	}
	return settings.Printer, nil
}

func (s *SettingsService) UpdatePrinterSettings(ctx context.Context, printer domain.PrinterSettings) (domain.PrinterSettings, error) {
	if _, err := s.GetOrCreate(ctx); err != nil {
		return domain.PrinterSettings{}, err
	}
	settings, err := s.Update(ctx, domain.SettingsUpdateRequest{Printer: &printer})
	if err != nil {
		return domain.PrinterSettings{}, err
	}
	return settings.Printer, nil
}
