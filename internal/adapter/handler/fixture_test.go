package handler_test

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/harvest-market/internal/adapter/handler"
	"github.com/rl1809/harvest-market/internal/adapter/storage"
	"github.com/rl1809/harvest-market/internal/auth"
	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/core/service"
	"github.com/rl1809/harvest-market/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Setup("test", io.Discard)
	os.Exit(m.Run())
}

type memCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *memCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func (c *memCache) ReleaseIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

type market struct {
	db      *storage.SQLAdapter
	tokens  *auth.Tokens
	orders  *service.OrderService
	views   *service.OrderViewService
	catalog *service.CatalogService
}

// newMarket seeds farmers f1 and f2, grocer g1 and two products:
// kale (f1, 30 per unit, 10 in stock) and maize (f2, 45 per unit, 5 in stock).
func newMarket(t *testing.T) *market {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.SaveFarmer(ctx, storage.Profile{ID: "f1", Name: "Wanjiru"}))
	require.NoError(t, db.SaveFarmer(ctx, storage.Profile{ID: "f2", Name: "Otieno"}))
	require.NoError(t, db.SaveGrocer(ctx, storage.Profile{ID: "g1", Name: "Mama Mboga", StoreName: "Stall 4"}))
	for _, p := range []domain.Product{
		{ID: "kale", FarmerID: "f1", Name: "Kale", PricePerUnit: 30, QuantityAvailable: 10},
		{ID: "maize", FarmerID: "f2", Name: "Maize", PricePerUnit: 45, QuantityAvailable: 5},
	} {
		p.CreatedAt = time.Now().UTC()
		require.NoError(t, db.CreateProduct(ctx, p))
	}

	return &market{
		db:      db,
		tokens:  auth.NewTokens("test-secret"),
		orders:  service.NewOrderService(db, &memCache{keys: map[string]bool{}}),
		views:   service.NewOrderViewService(db),
		catalog: service.NewCatalogService(db),
	}
}

func (m *market) token(t *testing.T, who domain.Identity) string {
	t.Helper()
	token, err := m.tokens.Issue(who, time.Hour)
	require.NoError(t, err)
	return token
}

func (m *market) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := m.db.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.QuantityAvailable
}

func (m *market) httpHandler() *handler.HTTPHandler {
	return handler.NewHTTPHandler(m.orders, m.views, m.catalog)
}
