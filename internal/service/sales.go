package service

import (
	"context"
	"strings"

	"mothercare/backend/internal/domain"
)

// RecordSale takes stock for one sale and files it under the line's current
// session. The stock check, sale insert and stock decrement are one unit in
// the store; on any error nothing is persisted.
func (s *Service) RecordSale(ctx context.Context, line domain.Line, req domain.SaleRequest) (domain.SaleResponse, error) {
	if err := validLine(line); err != nil {
		return domain.SaleResponse{}, err
	}
	if req.QuantitySold <= 0 {
		return domain.SaleResponse{}, validation("quantity sold must be greater than zero")
	}
	if req.QuantitySold > domain.MaxQuantity {
		return domain.SaleResponse{}, validation("quantity sold is too large")
	}
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		return domain.SaleResponse{}, validation("item is required")
	}
	actor, err := s.authorize(ctx, CapabilityRecordSale)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	sale, item, err := s.repo.RecordSale(ctx, line, itemID, req.QuantitySold, actor.Username, s.now())
	if err != nil {
		return domain.SaleResponse{}, fromStore(err, "item")
	}
	s.audit(ctx, "sale_record", line, "sale", sale.ID)
	return domain.SaleResponse{Sale: *sale, Item: *item}, nil
}

// CanDeleteSale reports whether the actor in ctx may delete sales, so callers
// can refuse before asking for a manager PIN.
func (s *Service) CanDeleteSale(ctx context.Context) error {
	_, err := s.authorize(ctx, CapabilityDeleteSale)
	return err
}

// DeleteSale removes a sale. Stock is only returned to the item when restock
// is set.
func (s *Service) DeleteSale(ctx context.Context, line domain.Line, id string, restock bool) (domain.Sale, error) {
	if err := validLine(line); err != nil {
		return domain.Sale{}, err
	}
	if _, err := s.authorize(ctx, CapabilityDeleteSale); err != nil {
		return domain.Sale{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, validation("sale id is required")
	}

	sale, err := s.repo.DeleteSale(ctx, line, id, restock)
	if err != nil {
		return domain.Sale{}, fromStore(err, "sale")
	}
	action := "sale_delete"
	if restock {
		action = "sale_delete_restock"
	}
	s.audit(ctx, action, line, "sale", sale.ID)
	return *sale, nil
}

func (s *Service) GetSale(ctx context.Context, line domain.Line, id string) (domain.Sale, error) {
	if err := validLine(line); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, line, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, fromStore(err, "sale")
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, line domain.Line, filter domain.SaleFilter) ([]domain.Sale, error) {
	if err := validLine(line); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, validation("range end is before its start")
	}
	sales, err := s.repo.ListSales(ctx, line, filter)
	if err != nil {
		return nil, fromStore(err, "sale")
	}
	return sales, nil
}

// CurrentSessionSales lists the sales of the session that is open now.
func (s *Service) CurrentSessionSales(ctx context.Context, line domain.Line) (domain.Session, []domain.Sale, error) {
	session, err := s.CurrentSession(ctx, line)
	if err != nil {
		return domain.Session{}, nil, err
	}
	sales, err := s.ListSales(ctx, line, domain.SaleFilter{SessionID: session.ID})
	if err != nil {
		return domain.Session{}, nil, err
	}
	return session, sales, nil
}
