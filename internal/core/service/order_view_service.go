package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/port"
)

// OrderViewService rebuilds role-scoped order histories from the ledger. Each
// view is one joined query assembled in memory; it never writes.
type OrderViewService struct {
	db port.DatabaseRepository
}

func NewOrderViewService(db port.DatabaseRepository) *OrderViewService {
	return &OrderViewService{db: db}
}

// ListOrders dispatches on the caller's role.
func (s *OrderViewService) ListOrders(ctx context.Context, who domain.Identity) ([]domain.OrderSummary, error) {
	switch id := who.(type) {
	case domain.Grocer:
		return s.ListOrdersForGrocer(ctx, id.ID)
	case domain.Farmer:
		return s.ListOrdersForFarmer(ctx, id.ID)
	default:
		return nil, ErrForbidden
	}
}

// ListOrdersForGrocer returns the grocer's orders with every line item and
// the stored order total.
func (s *OrderViewService) ListOrdersForGrocer(ctx context.Context, grocerID string) ([]domain.OrderSummary, error) {
	lines, err := s.db.GrocerOrderLines(ctx, grocerID)
	if err != nil {
		return nil, fmt.Errorf("grocer order lines: %w", err)
	}

	return assemble(lines, func(l domain.OrderLine) bool { return l.BuyerID == grocerID }, false), nil
}

// ListOrdersForFarmer returns only the orders touching the farmer's products,
// each cut down to the farmer's own lines with a total over those lines.
func (s *OrderViewService) ListOrdersForFarmer(ctx context.Context, farmerID string) ([]domain.OrderSummary, error) {
	lines, err := s.db.FarmerOrderLines(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("farmer order lines: %w", err)
	}

	return assemble(lines, func(l domain.OrderLine) bool { return l.FarmerID == farmerID }, true), nil
}

func assemble(lines []domain.OrderLine, keep func(domain.OrderLine) bool, partialTotal bool) []domain.OrderSummary {
	summaries := make([]domain.OrderSummary, 0)
	index := make(map[string]int)

	for _, l := range lines {
		if !keep(l) {
			continue
		}

		i, ok := index[l.OrderID]
		if !ok {
			summary := domain.OrderSummary{
				OrderID:   l.OrderID,
				BuyerID:   l.BuyerID,
				BuyerName: l.BuyerName,
				CreatedAt: l.CreatedAt,
			}
			if !partialTotal {
				summary.TotalAmount = l.OrderTotal
			}
			i = len(summaries)
			index[l.OrderID] = i
			summaries = append(summaries, summary)
		}

		summaries[i].Items = append(summaries[i].Items, l.Item())
		if partialTotal {
			summaries[i].TotalAmount += l.Extended
		}
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].CreatedAt.Before(summaries[b].CreatedAt)
	})

	return summaries
}
