package repository

import (
	"context"
	"fmt"

	"erasmus-atlas/internal/shared/storage/dbutil"
	pgdriver "erasmus-atlas/internal/shared/storage/driver/postgres"
	sqlitedriver "erasmus-atlas/internal/shared/storage/driver/sqlite"
)

// Open 根据驱动类型建立连接并执行 Schema 迁移
func Open(ctx context.Context, driver, dsn string, maxConns int) (*Store, error) {
	var store *Store

	switch dbutil.DriverType(driver) {
	case dbutil.DriverSQLite:
		db, err := sqlitedriver.Open(dsn)
		if err != nil {
			return nil, err
		}
		store = NewStore(db, sqlitedriver.NewDialect())
	case dbutil.DriverPostgres, "":
		db, closePool, err := pgdriver.Open(ctx, dsn, maxConns)
		if err != nil {
			return nil, err
		}
		store = NewStore(db, pgdriver.NewDialect())
		store.onClose = closePool
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return store, nil
}
