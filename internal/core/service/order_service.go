package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/logger"
	"github.com/rl1809/harvest-market/internal/metrics"
	"github.com/rl1809/harvest-market/internal/port"
)

const idempotencyKeyPrefix = "idempotency:"

type OrderService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
	now   func() time.Time
	newID func() string
}

// NewOrderService builds the checkout service. cache may be nil, in which
// case PlaceOrderOnce behaves like PlaceOrder.
func NewOrderService(db port.DatabaseRepository, cache port.CacheRepository) *OrderService {
	return &OrderService{
		db:    db,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newID,
	}
}

// PlaceOrder validates the requested items against current stock, prices them,
// decrements stock and records the order with its line items, all in one
// transaction. Nothing is persisted when any step fails.
func (s *OrderService) PlaceOrder(ctx context.Context, buyer domain.Grocer, items []domain.ItemRequest) (domain.Order, error) {
	order, err := s.placeOrder(ctx, buyer, items)
	if err != nil {
		metrics.RecordCheckoutFailure(failureReason(err))
		logger.WithCtx(ctx).Debug("checkout rejected", "buyer_id", buyer.ID, "error", err)
		return domain.Order{}, err
	}

	units := 0
	for _, it := range order.Items {
		units += it.Quantity
	}
	metrics.RecordOrder(units)
	logger.WithCtx(ctx).Info("order placed",
		"order_id", order.ID,
		"buyer_id", order.BuyerID,
		"items", len(order.Items),
		"total_amount", order.TotalAmount,
	)

	return order, nil
}

// PlaceOrderOnce runs PlaceOrder at most once per (buyer, key). A failed
// checkout releases the key so the caller can retry the whole request.
func (s *OrderService) PlaceOrderOnce(ctx context.Context, key string, buyer domain.Grocer, items []domain.ItemRequest) (domain.Order, error) {
	if s.cache == nil || key == "" {
		return s.PlaceOrder(ctx, buyer, items)
	}

	idempotencyKey := fmt.Sprintf("%s%s:%s", idempotencyKeyPrefix, buyer.ID, key)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		metrics.RecordCheckoutFailure(failureReason(ErrDuplicateRequest))
		return domain.Order{}, ErrDuplicateRequest
	}

	order, err := s.PlaceOrder(ctx, buyer, items)
	if err != nil {
		if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), idempotencyKey); relErr != nil {
			logger.WithCtx(ctx).Warn("release idempotency key", "key", idempotencyKey, "error", relErr)
		}
		return domain.Order{}, err
	}

	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, buyer domain.Grocer, items []domain.ItemRequest) (domain.Order, error) {
	if buyer.ID == "" {
		return domain.Order{}, fmt.Errorf("%w: missing buyer", ErrInvalidOrder)
	}
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ProductID == "" {
			return domain.Order{}, fmt.Errorf("%w: item %d has no product id", ErrInvalidOrder, i)
		}
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidOrder, i)
		}
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	// fixed lock order across concurrent checkouts
	sort.Strings(ids)

	var order domain.Order
	err := s.db.WithinTx(ctx, func(tx port.TxRepository) error {
		products, err := tx.GetProducts(ctx, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		// Same-product lines are validated against their running sum.
		demand := make(map[string]int, len(ids))
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
			}
			// the running sum never exceeds available, so it cannot wrap
			prior := demand[it.ProductID]
			if it.Quantity > p.QuantityAvailable-prior {
				return &InsufficientStockError{
					ProductID: it.ProductID,
					Requested: addCapped(prior, it.Quantity),
					Available: p.QuantityAvailable,
				}
			}
			demand[it.ProductID] = prior + it.Quantity
		}

		order, err = s.buildOrder(buyer, items, products)
		if err != nil {
			return err
		}

		for _, id := range ids {
			ok, err := tx.DecrementStock(ctx, id, demand[id])
			if err != nil {
				return fmt.Errorf("decrement stock %s: %w", id, err)
			}
			if ok {
				continue
			}
			current, err := tx.GetProduct(ctx, id)
			if err != nil {
				return fmt.Errorf("reload product %s: %w", id, err)
			}
			if current == nil {
				return fmt.Errorf("%w: %s", ErrProductNotFound, id)
			}
			return &InsufficientStockError{ProductID: id, Requested: demand[id], Available: current.QuantityAvailable}
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *OrderService) buildOrder(buyer domain.Grocer, items []domain.ItemRequest, products map[string]domain.Product) (domain.Order, error) {
	// every dialect stores microseconds
	order := domain.Order{
		ID:        s.newID(),
		BuyerID:   buyer.ID,
		CreatedAt: s.now().Truncate(time.Microsecond),
		Items:     make([]domain.LineItem, 0, len(items)),
	}
	for _, it := range items {
		item, err := domain.NewLineItem(s.newID(), order.ID, products[it.ProductID], it.Quantity)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: product %s: %w", ErrInvalidOrder, it.ProductID, err)
		}
		order.Items = append(order.Items, item)
	}
	total, err := domain.SumExtended(order.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: order total: %w", ErrInvalidOrder, err)
	}
	order.TotalAmount = total
	return order, nil
}

func addCapped(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// newID returns a time-ordered UUIDv7 so ids sort in creation order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
