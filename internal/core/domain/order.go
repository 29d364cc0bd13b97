package domain

import (
	"errors"
	"math"
	"time"
)

// ErrAmountOverflow reports an extended price or order total outside int64.
var ErrAmountOverflow = errors.New("amount overflows int64")

type ItemRequest struct {
	ProductID string
	Quantity  int
}

type Order struct {
	ID          string
	BuyerID     string
	TotalAmount int64
	CreatedAt   time.Time
	DeliveredAt *time.Time
	Items       []LineItem
}

// LineItem prices are captured at checkout and never follow later product price changes.
type LineItem struct {
	ID            string
	OrderID       string
	ProductID     string
	Quantity      int
	UnitPrice     int64
	ExtendedPrice int64
}

// NewLineItem snapshots the product price. Prices and quantities are never
// negative, so only the upper bound needs checking.
func NewLineItem(id, orderID string, product Product, quantity int) (LineItem, error) {
	if quantity > 0 && product.PricePerUnit > math.MaxInt64/int64(quantity) {
		return LineItem{}, ErrAmountOverflow
	}
	return LineItem{
		ID:            id,
		OrderID:       orderID,
		ProductID:     product.ID,
		Quantity:      quantity,
		UnitPrice:     product.PricePerUnit,
		ExtendedPrice: product.PricePerUnit * int64(quantity),
	}, nil
}

// SumExtended returns the sum of the items' extended prices.
func SumExtended(items []LineItem) (int64, error) {
	var total int64
	for _, it := range items {
		if it.ExtendedPrice > math.MaxInt64-total {
			return 0, ErrAmountOverflow
		}
		total += it.ExtendedPrice
	}
	return total, nil
}
