package core

import (
	"context"
	"fmt"

	"inventario/internal/config"
	"inventario/internal/infra/persistence/csvfile"
	"inventario/internal/infra/persistence/memory"
	"inventario/internal/infra/persistence/sqlstate"
	"inventario/pkg/domain"
)

// OpenTableStore constructs the table backend selected by cfg.StorageDriver.
// SQL backends hold a connection pool; Service.Close releases it.
func OpenTableStore(ctx context.Context, cfg config.Config) (domain.TableStore, error) {
	var (
		store domain.TableStore
		err   error
	)
	switch cfg.StorageDriver {
	case "", config.StorageCSV:
		var s *csvfile.Store
		if s, err = csvfile.New(cfg.DataDir); err == nil {
			store = s
		}
	case config.StorageMemory:
		store = memory.NewStore()
	case config.StorageSQLite:
		store, err = openSQL(sqlstate.NewSQLite(ctx, cfg.SQLitePath))
	case config.StoragePostgres:
		store, err = openSQL(sqlstate.NewPostgres(ctx, cfg.PostgresDSN))
	case config.StorageMySQL:
		store, err = openSQL(sqlstate.NewMySQL(ctx, cfg.MySQLDSN))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s table store: %w", cfg.StorageDriver, err)
	}
	return store, nil
}

func openSQL(s *sqlstate.Store, err error) (domain.TableStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
