package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/port"
)

var ErrEmptyOrder = errors.New("order has no line items")

type dialect struct {
	name string
	// lockClause is appended to product reads made during checkout
	lockClause string
	// dollarParams rewrites ? placeholders to $1, $2, ...
	dollarParams bool
	schema       []string
}

func (d dialect) rebind(query string) string {
	if !d.dollarParams || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLAdapter implements port.DatabaseRepository on database/sql. MySQL,
// PostgreSQL and SQLite share every statement; only the schema, row locking
// and placeholder style differ.
type SQLAdapter struct {
	db      *sql.DB
	dialect dialect
}

// Profile is a farmer or grocer row. Profiles are owned by the account
// system; the ledger only reads their display names.
type Profile struct {
	ID          string
	Name        string
	StoreName   string
	Email       string
	PhoneNumber string
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// boundQuerier writes every statement in ? form and lets the dialect
// translate placeholders.
type boundQuerier struct {
	q querier
	d dialect
}

func (b boundQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.q.ExecContext(ctx, b.d.rebind(query), args...)
}

func (b boundQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.q.QueryContext(ctx, b.d.rebind(query), args...)
}

func (b boundQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return b.q.QueryRowContext(ctx, b.d.rebind(query), args...)
}

func (a *SQLAdapter) conn() querier { return boundQuerier{q: a.db, d: a.dialect} }

func (a *SQLAdapter) DB() *sql.DB { return a.db }

func (a *SQLAdapter) Dialect() string { return a.dialect.name }

// Rebind converts a ?-style query to the dialect's placeholder syntax, for
// callers that use DB() directly.
func (a *SQLAdapter) Rebind(query string) string { return a.dialect.rebind(query) }

func (a *SQLAdapter) Close() error { return a.db.Close() }

// Migrate creates the schema if it does not exist yet.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range a.dialect.schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", a.dialect.name, err)
		}
	}
	return nil
}

func (a *SQLAdapter) WithinTx(ctx context.Context, fn func(tx port.TxRepository) error) (txErr error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(&sqlTx{q: boundQuerier{q: tx, d: a.dialect}, dialect: a.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqlTx struct {
	q       querier
	dialect dialect
}

const productColumns = `SELECT id, farmer_id, name, description, price_per_unit, quantity_available, created_at`

func (t *sqlTx) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := productColumns + ` FROM products WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id` + t.dialect.lockClause
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return out, nil
}

func (t *sqlTx) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, t.q, id)
}

func (t *sqlTx) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	result, err := t.q.ExecContext(ctx, `
		UPDATE products
		SET quantity_available = quantity_available - ?
		WHERE id = ? AND quantity_available >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("update stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return rows == 1, nil
}

func (t *sqlTx) CreateOrder(ctx context.Context, order domain.Order) error {
	if len(order.Items) == 0 {
		return ErrEmptyOrder
	}

	_, err := t.q.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, total_amount, created_at, delivered_at)
		VALUES (?, ?, ?, ?, ?)`,
		order.ID, order.BuyerID, order.TotalAmount, order.CreatedAt.UTC(), order.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range order.Items {
		_, err := t.q.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, line_no, product_id, quantity, unit_price, extended_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, order.ID, i, it.ProductID, it.Quantity, it.UnitPrice, it.ExtendedPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	return nil
}

func (a *SQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, a.conn(), id)
}

func (a *SQLAdapter) ListProducts(ctx context.Context) ([]domain.ProductListing, error) {
	rows, err := a.conn().QueryContext(ctx, `
		SELECT p.id, p.farmer_id, p.name, p.description, p.price_per_unit, p.quantity_available, p.created_at,
		       COALESCE(f.name, '')
		FROM products p
		LEFT JOIN farmers f ON f.id = p.farmer_id
		ORDER BY p.created_at, p.id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductListing
	for rows.Next() {
		var (
			l         domain.ProductListing
			createdAt timestamp
		)
		err := rows.Scan(&l.ID, &l.FarmerID, &l.Name, &l.Description, &l.PricePerUnit, &l.QuantityAvailable,
			&createdAt, &l.FarmerName)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		l.CreatedAt = createdAt.Time
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return out, nil
}

func (a *SQLAdapter) CreateProduct(ctx context.Context, product domain.Product) error {
	_, err := a.conn().ExecContext(ctx, `
		INSERT INTO products (id, farmer_id, name, description, price_per_unit, quantity_available, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.FarmerID, product.Name, product.Description, product.PricePerUnit,
		product.QuantityAvailable, product.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (a *SQLAdapter) UpdatePrice(ctx context.Context, productID string, price int64) error {
	_, err := a.conn().ExecContext(ctx, `UPDATE products SET price_per_unit = ? WHERE id = ?`, price, productID)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	return nil
}

func (a *SQLAdapter) SaveFarmer(ctx context.Context, p Profile) error {
	_, err := a.conn().ExecContext(ctx, `
		INSERT INTO farmers (id, name, email, phone_number) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("insert farmer: %w", err)
	}
	return nil
}

func (a *SQLAdapter) SaveGrocer(ctx context.Context, p Profile) error {
	_, err := a.conn().ExecContext(ctx, `
		INSERT INTO grocers (id, name, store_name, email, phone_number) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.StoreName, p.Email, p.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("insert grocer: %w", err)
	}
	return nil
}

const orderLineQuery = `
	SELECT o.id, o.buyer_id, COALESCE(g.name, ''), o.total_amount, o.created_at,
	       i.id, i.product_id, p.name, p.farmer_id, COALESCE(f.name, ''),
	       i.quantity, i.unit_price, i.extended_price
	FROM orders o
	JOIN order_items i ON i.order_id = o.id
	JOIN products p ON p.id = i.product_id
	LEFT JOIN grocers g ON g.id = o.buyer_id
	LEFT JOIN farmers f ON f.id = p.farmer_id
	WHERE %s = ?
	ORDER BY o.created_at, o.id, i.line_no`

func (a *SQLAdapter) GrocerOrderLines(ctx context.Context, grocerID string) ([]domain.OrderLine, error) {
	return a.orderLines(ctx, "o.buyer_id", grocerID)
}

func (a *SQLAdapter) FarmerOrderLines(ctx context.Context, farmerID string) ([]domain.OrderLine, error) {
	return a.orderLines(ctx, "p.farmer_id", farmerID)
}

func (a *SQLAdapter) orderLines(ctx context.Context, column, id string) ([]domain.OrderLine, error) {
	rows, err := a.conn().QueryContext(ctx, fmt.Sprintf(orderLineQuery, column), id)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var (
			l         domain.OrderLine
			createdAt timestamp
		)
		err := rows.Scan(&l.OrderID, &l.BuyerID, &l.BuyerName, &l.OrderTotal, &createdAt,
			&l.LineItemID, &l.ProductID, &l.ProductName, &l.FarmerID, &l.FarmerName,
			&l.Quantity, &l.UnitPrice, &l.Extended)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		l.CreatedAt = createdAt.Time
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return out, nil
}

func getProduct(ctx context.Context, q querier, id string) (*domain.Product, error) {
	row := q.QueryRowContext(ctx, productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p         domain.Product
		createdAt timestamp
	)
	err := s.Scan(&p.ID, &p.FarmerID, &p.Name, &p.Description, &p.PricePerUnit, &p.QuantityAvailable, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, err
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.CreatedAt = createdAt.Time
	return p, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// timestamp scans DATETIME columns from drivers that hand back either
// time.Time or their textual form.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time = time.Time{}
		return nil
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
