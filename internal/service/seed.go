package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

type SeedOptions struct {
	AdminPassword   string
	CashierPassword string
}

type sampleProduct struct {
	sku        string
	name       string
	categoryID string
	price      int64
	marginRate float64
	quantity   int
	wholesale  *sampleTier
}

type sampleTier struct {
	price  int64
	minQty int
}

var sampleCategories = []domain.Category{
	{ID: "cat-grocery", Name: "Sembako"},
	{ID: "cat-dairy", Name: "Susu & Olahan"},
	{ID: "cat-bakery", Name: "Roti"},
	{ID: "cat-beverage", Name: "Minuman"},
	{ID: "cat-snack", Name: "Camilan"},
	{ID: "cat-household", Name: "Kebutuhan Rumah"},
}

var sampleProducts = []sampleProduct{
	{"SKU-MIE-01", "Mie Goreng Instan", "cat-grocery", 3500, 0.22, 120, &sampleTier{3200, 40}},
	{"SKU-TELUR-01", "Telur 10 Butir", "cat-grocery", 26500, 0.13, 30, nil},
	{"SKU-SUSU-01", "Susu UHT 1L", "cat-dairy", 18900, 0.28, 24, nil},
	{"SKU-ROTI-01", "Roti Tawar", "cat-bakery", 17800, 0.30, 15, nil},
	{"SKU-KOPI-01", "Kopi Sachet", "cat-beverage", 2600, 0.34, 200, &sampleTier{2300, 50}},
	{"SKU-GULA-01", "Gula 1kg", "cat-grocery", 17400, 0.12, 40, nil},
	{"SKU-TEH-01", "Teh Celup", "cat-beverage", 9800, 0.26, 35, nil},
	{"SKU-AIR-01", "Air Mineral 600ml", "cat-beverage", 3900, 0.18, 96, &sampleTier{3500, 24}},
	{"SKU-KERIPIK-01", "Keripik Singkong", "cat-snack", 12800, 0.37, 18, nil},
	{"SKU-COKLAT-01", "Coklat Batang", "cat-snack", 8600, 0.35, 22, nil},
	{"SKU-SABUN-01", "Sabun Mandi", "cat-household", 7400, 0.32, 8, nil},
	{"SKU-SHAMPOO-01", "Shampoo Sachet", "cat-household", 3200, 0.33, 0, nil},
}

// SeedSampleData fills an empty store with a demo catalog and the admin and
// cashier accounts. It does nothing once the store holds users or products,
// or after the data was intentionally cleared. It reports whether it seeded.
func (s *Service) SeedSampleData(ctx context.Context, opts SeedOptions) (bool, error) {
	adminPassword := strings.TrimSpace(opts.AdminPassword)
	cashierPassword := strings.TrimSpace(opts.CashierPassword)
	if adminPassword == "" || cashierPassword == "" {
		s.base.log.Warn("using default seed credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}
	if adminPassword == "" {
		adminPassword = "admin123"
	}
	if cashierPassword == "" {
		cashierPassword = "cashier123"
	}

	adminHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return false, err
	}
	cashierHash, err := auth.HashPassword(cashierPassword)
	if err != nil {
		return false, err
	}

	now := s.base.now()
	seeded := false
	kinds := []store.Kind{store.KindUsers, store.KindProducts, store.KindCategories, store.KindSettings}
	err = s.base.update(ctx, kinds, func(tx store.Tx) error {
		if _, cleared, err := tx.GetMeta(store.MetaDataCleared); err != nil {
			return err
		} else if cleared {
			return nil
		}
		for _, kind := range []store.Kind{store.KindUsers, store.KindProducts} {
			n, err := tx.Count(kind)
			if err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
		}

		for _, c := range sampleCategories {
			c.CreatedAt, c.UpdatedAt = now, now
			if err := tx.PutCategory(c); err != nil {
				return err
			}
		}
		for _, sp := range sampleProducts {
			if err := tx.PutProduct(sp.product(now)); err != nil {
				return err
			}
		}
		for _, u := range []domain.User{
			{ID: "usr-admin", Username: "admin", PasswordHash: adminHash, Role: domain.RoleAdmin},
			{ID: "usr-cashier", Username: "cashier", PasswordHash: cashierHash, Role: domain.RoleCashier},
		} {
			u.Active = true
			u.CreatedAt, u.UpdatedAt = now, now
			if err := tx.PutUser(u); err != nil {
				return err
			}
		}
		if _, ok, err := tx.GetSettings(); err != nil {
			return err
		} else if !ok {
			if err := tx.PutSettings(domain.DefaultSettings(now)); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.base.log.Info("seeded sample data", "products", len(sampleProducts), "categories", len(sampleCategories))
	}
	return seeded, nil
}

func (sp sampleProduct) product(now time.Time) domain.Product {
	price := decimal.NewFromInt(sp.price)
	p := domain.Product{
		ID:            "prd-" + strings.ToLower(strings.TrimPrefix(sp.sku, "SKU-")),
		Name:          sp.name,
		SKU:           sp.sku,
		Price:         price,
		Cost:          price.Mul(decimal.NewFromFloat(1 - sp.marginRate)).Round(0),
		Quantity:      sp.quantity,
		MinStockLevel: 10,
		CategoryID:    sp.categoryID,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if sp.wholesale != nil {
		minQty := sp.wholesale.minQty
		p.WholesalePrice = decimal.NewNullDecimal(decimal.NewFromInt(sp.wholesale.price))
		p.WholesaleMinQuantity = &minQty
	}
	return p
}
