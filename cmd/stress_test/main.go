package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/harvest-market/internal/adapter/storage"
	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/core/service"
	"github.com/rl1809/harvest-market/internal/logger"
)

const productID = "stress-test-product"

func main() {
	driver := flag.String("driver", storage.DriverSQLite, "database driver: sqlite, mysql or postgres")
	dsn := flag.String("dsn", ":memory:", "database DSN")
	initialStock := flag.Int("stock", 20, "units available before the run")
	totalRequests := flag.Int("requests", 50, "concurrent checkouts, one unit each")
	flag.Parse()

	logger.Setup("production", os.Stderr)
	ctx := context.Background()

	db, err := storage.Open(ctx, *driver, *dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Reset previous run data
	_, err = db.DB().ExecContext(ctx,
		db.Rebind(`DELETE FROM orders WHERE id IN (SELECT order_id FROM order_items WHERE product_id = ?)`), productID)
	if err != nil {
		log.Fatalf("failed to clear orders: %v", err)
	}
	if _, err := db.DB().ExecContext(ctx, db.Rebind(`DELETE FROM products WHERE id = ?`), productID); err != nil {
		log.Fatalf("failed to clear product: %v", err)
	}
	err = db.CreateProduct(ctx, domain.Product{
		ID:                productID,
		FarmerID:          "stress-farmer",
		Name:              "Stress test tomatoes",
		PricePerUnit:      50,
		QuantityAvailable: *initialStock,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	orderService := service.NewOrderService(db, nil)

	var successCount, soldOutCount, errorCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			buyer := domain.Grocer{ID: uuid.NewString()}
			_, err := orderService.PlaceOrder(ctx, buyer, []domain.ItemRequest{{ProductID: productID, Quantity: 1}})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("checkout error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success, soldOut, failed := successCount.Load(), soldOutCount.Load(), errorCount.Load()
	expected := min(*initialStock, *totalRequests)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", db.Dialect())
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	if success == int32(expected) && soldOut == int32(*totalRequests-expected) && failed == 0 {
		fmt.Printf("PASS: exactly %d orders succeeded, %d sold out\n", expected, *totalRequests-expected)
	} else {
		ok = false
		fmt.Printf("FAIL: expected %d success/%d sold out, got %d/%d (%d errors)\n",
			expected, *totalRequests-expected, success, soldOut, failed)
	}

	product, err := db.GetProduct(ctx, productID)
	if err != nil || product == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", product.QuantityAvailable)

	if product.QuantityAvailable == *initialStock-expected {
		fmt.Println("PASS: no oversell")
	} else {
		ok = false
		fmt.Printf("FAIL: expected stock %d, got %d\n", *initialStock-expected, product.QuantityAvailable)
	}

	if !ok {
		os.Exit(1)
	}
}
