package service

import (
	"context"
	"fmt"
	"strings"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

type CategoryService struct {
	*base
	activity *ActivityLogService
}

func (s *CategoryService) GetAll(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		categories, err = tx.ListCategories()
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortCategories(categories), nil
}

func (s *CategoryService) GetByID(ctx context.Context, id string) (domain.Category, error) {
	var category domain.Category
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetCategory(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("category", id)
		}
		category = found
		return nil
	})
	return category, err
}

func (s *CategoryService) Create(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	now := s.now()
	category := domain.Category{
		ID:          strings.TrimSpace(req.ID),
		Name:        strings.TrimSpace(req.Name),
		ParentID:    strings.TrimSpace(req.ParentID),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.Name == "" {
		return domain.Category{}, invalidInput("category name is required")
	}

	err := s.update(ctx, []store.Kind{store.KindCategories}, func(tx store.Tx) error {
		if _, exists, err := tx.GetCategory(category.ID); err != nil {
			return err
		} else if exists {
			return duplicate("category", "id", category.ID)
		}
		if err := checkParent(tx, category.ID, category.ParentID); err != nil {
			return err
		}
		return tx.PutCategory(category)
	})
	if err != nil {
		return domain.Category{}, err
	}

	s.activity.Record(ctx, "category_create", "category", category.ID, "name="+category.Name)
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	var category domain.Category
	err := s.update(ctx, []store.Kind{store.KindCategories}, func(tx store.Tx) error {
		existing, ok, err := tx.GetCategory(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("category", id)
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalidInput("category name is required")
			}
			existing.Name = name
		}
		if req.Description != nil {
			existing.Description = strings.TrimSpace(*req.Description)
		}
		if req.ParentID != nil {
			existing.ParentID = strings.TrimSpace(*req.ParentID)
			if err := checkParent(tx, existing.ID, existing.ParentID); err != nil {
				return err
			}
		}
		existing.UpdatedAt = s.now()
		category = existing
		return tx.PutCategory(existing)
	})
	if err != nil {
		return domain.Category{}, err
	}

	s.activity.Record(ctx, "category_update", "category", category.ID, "")
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	err := s.update(ctx, []store.Kind{store.KindCategories}, func(tx store.Tx) error {
		if _, ok, err := tx.GetCategory(id); err != nil {
			return err
		} else if !ok {
			return notFound("category", id)
		}
		refs, err := tx.CountProductsByCategory(id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: category %q has %d products", store.ErrInUse, id, refs)
		}
		return tx.DeleteCategory(id)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, "category_delete", "category", id, "")
	return nil
}

// checkParent rejects a parent that is missing or that would close a cycle.
func checkParent(tx store.Tx, id string, parentID string) error {
	seen := map[string]bool{id: true}
	for current := parentID; current != ""; {
		if seen[current] {
			return invalidInput("category %q cannot be its own ancestor", id)
		}
		seen[current] = true

		parent, ok, err := tx.GetCategory(current)
		if err != nil {
			return err
		}
		if !ok {
			return invalidInput("parent category %q does not exist", current)
		}
		current = parent.ParentID
	}
	return nil
}
