package port

import (
	"context"

	"github.com/rl1809/harvest-market/internal/core/domain"
)

// TxRepository is the view of the store available inside a transaction.
type TxRepository interface {
	// GetProducts loads the given products, locking them for the rest of the
	// transaction where the backend supports it. Missing ids are absent from the map.
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// GetProduct returns nil when the product does not exist
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// DecrementStock subtracts quantity only if enough stock remains, returns false otherwise
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)

	// CreateOrder inserts the order header and all of its line items
	CreateOrder(ctx context.Context, order domain.Order) error
}

type DatabaseRepository interface {
	// WithinTx runs fn in a single transaction, committing only if fn returns nil
	WithinTx(ctx context.Context, fn func(tx TxRepository) error) error

	// GetProduct returns nil when the product does not exist
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	ListProducts(ctx context.Context) ([]domain.ProductListing, error)
	CreateProduct(ctx context.Context, product domain.Product) error

	// UpdatePrice changes the current unit price; historical line items keep theirs
	UpdatePrice(ctx context.Context, productID string, price int64) error

	// GrocerOrderLines returns every line of every order placed by grocerID,
	// ordered by order creation then line position
	GrocerOrderLines(ctx context.Context, grocerID string) ([]domain.OrderLine, error)

	// FarmerOrderLines returns only the lines whose product belongs to farmerID,
	// ordered by order creation then line position
	FarmerOrderLines(ctx context.Context, farmerID string) ([]domain.OrderLine, error)
}
