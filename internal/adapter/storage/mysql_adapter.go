package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const DriverMySQL = "mysql"

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS farmers (
		id           VARCHAR(64)  NOT NULL PRIMARY KEY,
		name         VARCHAR(120) NOT NULL,
		email        VARCHAR(255) NOT NULL DEFAULT '',
		phone_number VARCHAR(32)  NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS grocers (
		id           VARCHAR(64)  NOT NULL PRIMARY KEY,
		name         VARCHAR(120) NOT NULL,
		store_name   VARCHAR(120) NOT NULL DEFAULT '',
		email        VARCHAR(255) NOT NULL DEFAULT '',
		phone_number VARCHAR(32)  NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                 VARCHAR(64)   NOT NULL PRIMARY KEY,
		farmer_id          VARCHAR(64)   NOT NULL,
		name               VARCHAR(60)   NOT NULL,
		description        VARCHAR(1000) NOT NULL DEFAULT '',
		price_per_unit     BIGINT        NOT NULL,
		quantity_available INT           NOT NULL,
		created_at         DATETIME(6)   NOT NULL,
		INDEX idx_products_farmer (farmer_id),
		INDEX idx_products_name (name),
		CONSTRAINT chk_products_price CHECK (price_per_unit >= 0),
		CONSTRAINT chk_products_quantity CHECK (quantity_available >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           CHAR(36)    NOT NULL PRIMARY KEY,
		buyer_id     VARCHAR(64) NOT NULL,
		total_amount BIGINT      NOT NULL,
		created_at   DATETIME(6) NOT NULL,
		delivered_at DATETIME(6) NULL,
		INDEX idx_orders_buyer (buyer_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id             CHAR(36)    NOT NULL PRIMARY KEY,
		order_id       CHAR(36)    NOT NULL,
		line_no        INT         NOT NULL,
		product_id     VARCHAR(64) NOT NULL,
		quantity       INT         NOT NULL,
		unit_price     BIGINT      NOT NULL,
		extended_price BIGINT      NOT NULL,
		UNIQUE KEY uq_order_items_line (order_id, line_no),
		INDEX idx_order_items_product (product_id),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE,
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id),
		CONSTRAINT chk_order_items_quantity CHECK (quantity > 0)
	)`,
}

// NewMySQLAdapter locks checkout reads with SELECT ... FOR UPDATE so
// concurrent orders for the same product queue behind each other.
func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{
		db: db,
		dialect: dialect{
			name:       DriverMySQL,
			lockClause: " FOR UPDATE",
			schema:     mysqlSchema,
		},
	}
}

// OpenMySQL connects with parseTime enabled in dsn, e.g.
// root:root@tcp(localhost:3306)/harvest?parseTime=true
func OpenMySQL(ctx context.Context, dsn string) (*SQLAdapter, error) {
	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return NewMySQLAdapter(db), nil
}
