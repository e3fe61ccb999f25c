package cmd

import (
	"fmt"

	"github.com/brk3/habitstreak/internal/config"
	"github.com/brk3/habitstreak/internal/storage"
	"github.com/brk3/habitstreak/internal/storage/bolt"
	"github.com/brk3/habitstreak/internal/storage/sqlstore"
)

func openStore(sc config.StorageConfig) (storage.Store, error) {
	switch sc.Driver {
	case config.DriverBolt:
		return bolt.Open(sc.Path)
	case config.DriverSQLite:
		return sqlstore.Open(sqlstore.DriverSQLite, sc.Path)
	case config.DriverPostgres:
		return sqlstore.Open(sqlstore.DriverPostgres, sc.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}
