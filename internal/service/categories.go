package service

import (
	"context"
	"strings"

	"mothercare/backend/internal/domain"
)

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fromStore(err, "category")
	}
	return categories, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return domain.Category{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, validation("category name is required")
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name})
	if err != nil {
		return domain.Category{}, fromStore(err, "category")
	}
	s.audit(ctx, "category_create", "", "category", created.ID)
	return *created, nil
}

func (s *Service) RenameCategory(ctx context.Context, id string, req domain.CategoryRequest) (domain.Category, error) {
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return domain.Category{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, validation("category name is required")
	}
	renamed, err := s.repo.RenameCategory(ctx, strings.TrimSpace(id), name)
	if err != nil {
		return domain.Category{}, fromStore(err, "category")
	}
	s.audit(ctx, "category_rename", "", "category", renamed.ID)
	return *renamed, nil
}

// DeleteCategory removes a category; items that used it become uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fromStore(err, "category")
	}
	s.audit(ctx, "category_delete", "", "category", id)
	return nil
}
