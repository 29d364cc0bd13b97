// Package storage holds the SQL ledger/catalog adapter (MySQL, PostgreSQL
// and SQLite dialects) and the Redis idempotency adapter.
package storage

import (
	"context"
	"fmt"
)

// Open picks the dialect by driver name and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLAdapter, error) {
	var (
		adapter *SQLAdapter
		err     error
	)
	switch driver {
	case DriverMySQL:
		adapter, err = OpenMySQL(ctx, dsn)
	case DriverPostgres:
		adapter, err = OpenPostgres(ctx, dsn)
	case DriverSQLite:
		adapter, err = OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: mysql, postgres, sqlite)", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := adapter.Migrate(ctx); err != nil {
		_ = adapter.Close()
		return nil, err
	}
	return adapter, nil
}
