package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/harvest-market/internal/core/domain"
)

// marketFixture has two farmers and one grocer who buys from both.
func marketFixture(t *testing.T) (*mockDB, *OrderService, *OrderViewService) {
	t.Helper()

	db := newMockDB()
	db.addFarmer("f1", "Wanjiru")
	db.addFarmer("f2", "Otieno")
	db.addGrocer("g", "Mama Mboga")
	db.addGrocer("g2", "Corner Stall")
	db.addProduct("kale", "f1", 30, 100)
	db.addProduct("maize", "f2", 45, 100)
	db.addProduct("beans", "f1", 80, 100)

	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	orders := NewOrderService(db, nil)
	orders.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	return db, orders, NewOrderViewService(db)
}

func TestListOrders_MultiFarmerOrder(t *testing.T) {
	_, orders, views := marketFixture(t)
	ctx := context.Background()

	placed, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{
		{ProductID: "kale", Quantity: 2},
		{ProductID: "maize", Quantity: 3},
	})
	require.NoError(t, err)

	grocerView, err := views.ListOrdersForGrocer(ctx, "g")
	require.NoError(t, err)

	want := []domain.OrderSummary{{
		OrderID:     placed.ID,
		BuyerID:     "g",
		BuyerName:   "Mama Mboga",
		TotalAmount: 195,
		CreatedAt:   placed.CreatedAt,
		Items: []domain.ItemSummary{
			{ProductID: "kale", ProductName: "product kale", FarmerID: "f1", FarmerName: "Wanjiru", Quantity: 2, UnitPrice: 30, ExtendedPrice: 60},
			{ProductID: "maize", ProductName: "product maize", FarmerID: "f2", FarmerName: "Otieno", Quantity: 3, UnitPrice: 45, ExtendedPrice: 135},
		},
	}}
	ignoreIDs := cmpopts.IgnoreFields(domain.ItemSummary{}, "LineItemID")
	assert.Empty(t, cmp.Diff(want, grocerView, ignoreIDs))

	f1View, err := views.ListOrdersForFarmer(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, f1View, 1)
	assert.Equal(t, placed.ID, f1View[0].OrderID)
	assert.Equal(t, "Mama Mboga", f1View[0].BuyerName)
	assert.Equal(t, int64(60), f1View[0].TotalAmount)
	require.Len(t, f1View[0].Items, 1)
	assert.Equal(t, "kale", f1View[0].Items[0].ProductID)

	f2View, err := views.ListOrdersForFarmer(ctx, "f2")
	require.NoError(t, err)
	require.Len(t, f2View, 1)
	assert.Equal(t, int64(135), f2View[0].TotalAmount)
	for _, it := range f2View[0].Items {
		assert.Equal(t, "f2", it.FarmerID)
	}
}

func TestListOrdersForFarmer_SkipsOrdersWithoutTheirItems(t *testing.T) {
	_, orders, views := marketFixture(t)
	ctx := context.Background()

	_, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{{ProductID: "maize", Quantity: 1}})
	require.NoError(t, err)
	mixed, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g2"}, []domain.ItemRequest{
		{ProductID: "beans", Quantity: 1},
		{ProductID: "maize", Quantity: 1},
		{ProductID: "kale", Quantity: 1},
	})
	require.NoError(t, err)

	f1View, err := views.ListOrdersForFarmer(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, f1View, 1)
	assert.Equal(t, mixed.ID, f1View[0].OrderID)
	assert.Equal(t, "Corner Stall", f1View[0].BuyerName)
	assert.Equal(t, int64(110), f1View[0].TotalAmount)
	require.Len(t, f1View[0].Items, 2)
	assert.Equal(t, "beans", f1View[0].Items[0].ProductID)
	assert.Equal(t, "kale", f1View[0].Items[1].ProductID)
}

func TestListOrders_NoOrdersIsEmpty(t *testing.T) {
	_, _, views := marketFixture(t)
	ctx := context.Background()

	grocerView, err := views.ListOrdersForGrocer(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, grocerView)
	assert.Empty(t, grocerView)

	farmerView, err := views.ListOrdersForFarmer(ctx, "f1")
	require.NoError(t, err)
	assert.NotNil(t, farmerView)
	assert.Empty(t, farmerView)
}

func TestListOrdersForGrocer_OnlyOwnOrdersInCreationOrder(t *testing.T) {
	_, orders, views := marketFixture(t)
	ctx := context.Background()

	first, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{{ProductID: "kale", Quantity: 1}})
	require.NoError(t, err)
	_, err = orders.PlaceOrder(ctx, domain.Grocer{ID: "g2"}, []domain.ItemRequest{{ProductID: "kale", Quantity: 1}})
	require.NoError(t, err)
	second, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{{ProductID: "maize", Quantity: 1}})
	require.NoError(t, err)

	view, err := views.ListOrdersForGrocer(ctx, "g")
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, first.ID, view[0].OrderID)
	assert.Equal(t, second.ID, view[1].OrderID)
	assert.True(t, view[0].CreatedAt.Before(view[1].CreatedAt))
}

func TestListOrders_PriceChangeDoesNotRewriteHistory(t *testing.T) {
	db, orders, views := marketFixture(t)
	ctx := context.Background()

	_, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{{ProductID: "kale", Quantity: 4}})
	require.NoError(t, err)

	catalog := NewCatalogService(db)
	_, err = catalog.UpdatePrice(ctx, domain.Farmer{ID: "f1"}, "kale", 999)
	require.NoError(t, err)

	view, err := views.ListOrdersForGrocer(ctx, "g")
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, int64(120), view[0].TotalAmount)
	assert.Equal(t, int64(30), view[0].Items[0].UnitPrice)
	assert.Equal(t, int64(120), view[0].Items[0].ExtendedPrice)
}

type unknownIdentity struct {
	domain.Farmer
}

func TestListOrders_DispatchesOnRole(t *testing.T) {
	_, orders, views := marketFixture(t)
	ctx := context.Background()

	_, err := orders.PlaceOrder(ctx, domain.Grocer{ID: "g"}, []domain.ItemRequest{
		{ProductID: "kale", Quantity: 1},
		{ProductID: "maize", Quantity: 1},
	})
	require.NoError(t, err)

	asGrocer, err := views.ListOrders(ctx, domain.Grocer{ID: "g"})
	require.NoError(t, err)
	require.Len(t, asGrocer, 1)
	assert.Len(t, asGrocer[0].Items, 2)

	asFarmer, err := views.ListOrders(ctx, domain.Farmer{ID: "f2"})
	require.NoError(t, err)
	require.Len(t, asFarmer, 1)
	assert.Len(t, asFarmer[0].Items, 1)

	_, err = views.ListOrders(ctx, unknownIdentity{domain.Farmer{ID: "f1"}})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = views.ListOrders(ctx, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}
