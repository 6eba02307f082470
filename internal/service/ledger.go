package service

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"mothercare/backend/internal/domain"
)

func (s *Service) ListItems(ctx context.Context, line domain.Line) ([]domain.Item, error) {
	if err := validLine(line); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, line)
	if err != nil {
		return nil, fromStore(err, "item")
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, line domain.Line, id string) (domain.Item, error) {
	if err := validLine(line); err != nil {
		return domain.Item{}, err
	}
	item, err := s.repo.GetItem(ctx, line, strings.TrimSpace(id))
	if err != nil {
		return domain.Item{}, fromStore(err, "item")
	}
	return *item, nil
}

// LowStockItems lists items that are low or out of stock, emptiest first.
func (s *Service) LowStockItems(ctx context.Context, line domain.Line) ([]domain.Item, error) {
	items, err := s.ListItems(ctx, line)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Status != domain.StatusInStock {
			low = append(low, item)
		}
	}
	sortByQuantity(low)
	return low, nil
}

func (s *Service) CreateItem(ctx context.Context, line domain.Line, req domain.ItemCreateRequest) (domain.Item, error) {
	if err := validLine(line); err != nil {
		return domain.Item{}, err
	}
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return domain.Item{}, err
	}

	reorder := domain.DefaultReorderLevel
	if req.ReorderLevel != nil {
		reorder = *req.ReorderLevel
	}
	item := domain.Item{
		Line:         line,
		Name:         strings.TrimSpace(req.Name),
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		ReorderLevel: reorder,
		CategoryID:   strings.TrimSpace(req.CategoryID),
	}
	if err := validateItem(item); err != nil {
		return domain.Item{}, err
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.Item{}, fromStore(err, "item")
	}
	s.audit(ctx, "item_create", line, "item", created.ID)
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, line domain.Line, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	if err := validLine(line); err != nil {
		return domain.Item{}, err
	}
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return domain.Item{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Item{}, validation("name is required")
		}
		req.Name = &name
	}
	if req.Quantity != nil {
		if err := checkCount("quantity", *req.Quantity); err != nil {
			return domain.Item{}, err
		}
	}
	if req.UnitPrice != nil {
		if err := checkPrice(*req.UnitPrice); err != nil {
			return domain.Item{}, err
		}
	}
	if req.ReorderLevel != nil {
		if err := checkCount("reorder level", *req.ReorderLevel); err != nil {
			return domain.Item{}, err
		}
	}
	if req.CategoryID != nil {
		category := strings.TrimSpace(*req.CategoryID)
		req.CategoryID = &category
	}

	updated, err := s.repo.UpdateItem(ctx, line, strings.TrimSpace(id), req)
	if err != nil {
		return domain.Item{}, fromStore(err, "item")
	}
	s.audit(ctx, "item_update", line, "item", updated.ID)
	return *updated, nil
}

// AdjustStock adds delta (which may be negative) to an item's quantity.
func (s *Service) AdjustStock(ctx context.Context, line domain.Line, id string, delta int) (domain.Item, error) {
	if err := validLine(line); err != nil {
		return domain.Item{}, err
	}
	if _, err := s.authorize(ctx, CapabilityManageCatalog); err != nil {
		return domain.Item{}, err
	}
	if delta == 0 {
		return domain.Item{}, validation("delta must not be zero")
	}
	if delta > domain.MaxQuantity || delta < -domain.MaxQuantity {
		return domain.Item{}, validation("delta is too large")
	}

	item, err := s.repo.AdjustStock(ctx, line, strings.TrimSpace(id), delta)
	if err != nil {
		return domain.Item{}, fromStore(err, "item")
	}
	s.audit(ctx, "stock_adjust", line, "item", item.ID)
	return *item, nil
}

func validateItem(item domain.Item) error {
	if item.Name == "" {
		return validation("name is required")
	}
	if err := checkCount("quantity", item.Quantity); err != nil {
		return err
	}
	if err := checkPrice(item.UnitPrice); err != nil {
		return err
	}
	return checkCount("reorder level", item.ReorderLevel)
}

func checkCount(field string, n int) error {
	switch {
	case n < 0:
		return validation(field + " must not be negative")
	case n > domain.MaxQuantity:
		return validation(field + " is too large")
	}
	return nil
}

func checkPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return validation("price must not be negative")
	case !price.Equal(price.Round(domain.AmountDecimals)):
		return validation("price must not have more than 2 decimal places")
	case !domain.ValidAmount(price):
		return validation("price is too large")
	}
	return nil
}

func sortByQuantity(items []domain.Item) {
	slices.SortStableFunc(items, func(a, b domain.Item) int {
		return cmp.Compare(a.Quantity, b.Quantity)
	})
}
