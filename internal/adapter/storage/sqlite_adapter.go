package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const DriverSQLite = "sqlite"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS farmers (
		id           TEXT NOT NULL PRIMARY KEY,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS grocers (
		id           TEXT NOT NULL PRIMARY KEY,
		name         TEXT NOT NULL,
		store_name   TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                 TEXT     NOT NULL PRIMARY KEY,
		farmer_id          TEXT     NOT NULL,
		name               TEXT     NOT NULL,
		description        TEXT     NOT NULL DEFAULT '',
		price_per_unit     INTEGER  NOT NULL CHECK (price_per_unit >= 0),
		quantity_available INTEGER  NOT NULL CHECK (quantity_available >= 0),
		created_at         DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_farmer ON products (farmer_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           TEXT     NOT NULL PRIMARY KEY,
		buyer_id     TEXT     NOT NULL,
		total_amount INTEGER  NOT NULL,
		created_at   DATETIME NOT NULL,
		delivered_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders (buyer_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id             TEXT    NOT NULL PRIMARY KEY,
		order_id       TEXT    NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		line_no        INTEGER NOT NULL,
		product_id     TEXT    NOT NULL REFERENCES products (id),
		quantity       INTEGER NOT NULL CHECK (quantity > 0),
		unit_price     INTEGER NOT NULL,
		extended_price INTEGER NOT NULL,
		UNIQUE (order_id, line_no)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items (product_id)`,
}

// NewSQLiteAdapter expects db to be limited to a single connection; SQLite
// then serializes writers and the conditional stock update is enough to
// prevent oversell.
func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{
		db: db,
		dialect: dialect{
			name:   DriverSQLite,
			schema: sqliteSchema,
		},
	}
}

// OpenSQLite opens a file path or ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*SQLAdapter, error) {
	db, err := sql.Open(DriverSQLite, sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// a single connection also keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return NewSQLiteAdapter(db), nil
}

// sqliteDSN appends the connection pragmas so every connection the pool
// opens gets them, not only the first.
func sqliteDSN(dsn string) string {
	pragmas := []string{"busy_timeout(5000)", "foreign_keys(1)"}
	if dsn != ":memory:" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}
