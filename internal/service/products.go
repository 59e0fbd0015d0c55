package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

type ProductService struct {
	*base
	activity *ActivityLogService
	stock    *StockCoordinator
}

// GetAll returns every product ordered by name, served from the catalog
// cache when it has a copy.
func (s *ProductService) GetAll(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.catalog.Get(ctx); err != nil {
		s.log.Warn("catalog cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	gen := s.catalog.Generation()
	products, err := s.list(ctx, func(tx store.Tx) ([]domain.Product, error) { return tx.ListProducts() })
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Fill(ctx, gen, products); err != nil {
		s.log.Warn("catalog cache write failed", "error", err)
	}
	return products, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetProduct(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("product", id)
		}
		product = found
		return nil
	})
	return product, err
}

// GetBySKU matches the whole SKU, ignoring case.
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (domain.Product, error) {
	sku = strings.TrimSpace(sku)
	var product domain.Product
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.FindProductBySKU(sku)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("product with sku", sku)
		}
		product = found
		return nil
	})
	return product, err
}

// Search is a full scan matching term against name, SKU and description.
func (s *ProductService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	products, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products, nil
	}

	matches := make([]domain.Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.SKU), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (s *ProductService) GetByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.Product, error) { return tx.ListProductsByCategory(categoryID) })
}

func (s *ProductService) GetActive(ctx context.Context) ([]domain.Product, error) {
	products, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

// GetLowStock returns products at or below threshold, or at or below their
// own minimum stock level when threshold is nil.
func (s *ProductService) GetLowStock(ctx context.Context, threshold *int) ([]domain.Product, error) {
	if threshold != nil {
		return s.list(ctx, func(tx store.Tx) ([]domain.Product, error) { return tx.ListProductsByMaxQuantity(*threshold) })
	}

	products, err := s.list(ctx, func(tx store.Tx) ([]domain.Product, error) { return tx.ListProducts() })
	if err != nil {
		return nil, err
	}
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Quantity <= p.MinStockLevel {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *ProductService) GetOutOfStock(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.Product, error) { return tx.ListProductsByMaxQuantity(0) })
}

func (s *ProductService) Create(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:                   strings.TrimSpace(req.ID),
		Name:                 strings.TrimSpace(req.Name),
		SKU:                  normalizeSKU(req.SKU),
		Barcode:              strings.TrimSpace(req.Barcode),
		Description:          strings.TrimSpace(req.Description),
		Price:                req.Price,
		Cost:                 req.Cost,
		Quantity:             req.Quantity,
		MinStockLevel:        req.MinStockLevel,
		CategoryID:           strings.TrimSpace(req.CategoryID),
		WholesalePrice:       req.WholesalePrice,
		WholesaleMinQuantity: req.WholesaleMinQuantity,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := checkProductFields(product); err != nil {
		return domain.Product{}, err
	}

	err := s.update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		if _, exists, err := tx.GetProduct(product.ID); err != nil {
			return err
		} else if exists {
			return duplicate("product", "id", product.ID)
		}
		if err := ensureUniqueSKU(tx, product.SKU, product.ID); err != nil {
			return err
		}
		if err := ensureCategoryExists(tx, product.CategoryID); err != nil {
			return err
		}
		return tx.PutProduct(product)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.activity.Record(ctx, "product_create", "product", product.ID,
		fmt.Sprintf("sku=%s,price=%s,quantity=%d", product.SKU, product.Price, product.Quantity))
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	var product domain.Product
	err := s.update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		existing, ok, err := tx.GetProduct(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("product", id)
		}

		if req.Name != nil {
			existing.Name = strings.TrimSpace(*req.Name)
		}
		if req.SKU != nil {
			existing.SKU = normalizeSKU(*req.SKU)
		}
		if req.Barcode != nil {
			existing.Barcode = strings.TrimSpace(*req.Barcode)
		}
		if req.Description != nil {
			existing.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			existing.Price = *req.Price
		}
		if req.Cost != nil {
			existing.Cost = *req.Cost
		}
		if req.MinStockLevel != nil {
			existing.MinStockLevel = *req.MinStockLevel
		}
		if req.CategoryID != nil {
			existing.CategoryID = strings.TrimSpace(*req.CategoryID)
		}
		if req.ClearWholesale {
			existing.WholesalePrice = decimal.NullDecimal{}
			existing.WholesaleMinQuantity = nil
		}
		if req.WholesalePrice != nil {
			existing.WholesalePrice = decimal.NewNullDecimal(*req.WholesalePrice)
		}
		if req.WholesaleMinQuantity != nil {
			minQty := *req.WholesaleMinQuantity
			existing.WholesaleMinQuantity = &minQty
		}
		if req.Active != nil {
			existing.Active = *req.Active
		}
		existing.UpdatedAt = s.now()

		if err := checkProductFields(existing); err != nil {
			return err
		}
		if req.SKU != nil {
			if err := ensureUniqueSKU(tx, existing.SKU, existing.ID); err != nil {
				return err
			}
		}
		if req.CategoryID != nil {
			if err := ensureCategoryExists(tx, existing.CategoryID); err != nil {
				return err
			}
		}
		product = existing
		return tx.PutProduct(existing)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.activity.Record(ctx, "product_update", "product", product.ID, "")
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	err := s.update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		if _, ok, err := tx.GetProduct(id); err != nil {
			return err
		} else if !ok {
			return notFound("product", id)
		}
		return tx.DeleteProduct(id)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, "product_delete", "product", id, "")
	return nil
}

// AdjustStock applies a manual stock correction through the stock coordinator.
func (s *ProductService) AdjustStock(ctx context.Context, id string, delta int, reason string) (domain.Product, error) {
	product, err := s.stock.UpdateStock(ctx, id, delta)
	if err != nil {
		return domain.Product{}, err
	}

	s.activity.Record(ctx, "stock_adjust", "product", id,
		fmt.Sprintf("delta=%d,quantity=%d,reason=%s", delta, product.Quantity, strings.TrimSpace(reason)))
	return product, nil
}

func (s *ProductService) list(ctx context.Context, query func(tx store.Tx) ([]domain.Product, error)) ([]domain.Product, error) {
	var products []domain.Product
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		products, err = query(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortProducts(products), nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func checkProductFields(p domain.Product) error {
	if p.Name == "" || p.SKU == "" {
		return invalidInput("product name and sku are required")
	}
	if p.Quantity < 0 || p.MinStockLevel < 0 {
		return invalidInput("quantity and minStockLevel must not be negative")
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() {
		return invalidInput("price and cost must not be negative")
	}
	if p.WholesalePrice.Valid != (p.WholesaleMinQuantity != nil) {
		return invalidInput("wholesalePrice and wholesaleMinQuantity must be set together")
	}
	if p.HasWholesaleTier() && (*p.WholesaleMinQuantity < 1 || p.WholesalePrice.Decimal.IsNegative()) {
		return invalidInput("wholesale tier needs a minimum quantity of at least 1 and a non-negative price")
	}
	return nil
}

func ensureUniqueSKU(tx store.Tx, sku string, selfID string) error {
	other, exists, err := tx.FindProductBySKU(sku)
	if err != nil {
		return err
	}
	if exists && other.ID != selfID {
		return duplicate("product", "sku", sku)
	}
	return nil
}

func ensureCategoryExists(tx store.Tx, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	_, ok, err := tx.GetCategory(categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return invalidInput("category %q does not exist", categoryID)
	}
	return nil
}
