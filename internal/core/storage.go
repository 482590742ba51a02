package core

import (
	"fmt"
	"os"

	"seedcore/internal/infra/persistence/memory"
	"seedcore/internal/infra/persistence/postgres"
	"seedcore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete repository implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenRepository selects a repository backend using environment variables.
// Defaults to memory when unset.
//
//	SEEDCORE_STORAGE_DRIVER: memory|sqlite|postgres (default memory)
//	SEEDCORE_SQLITE_PATH: path to sqlite file (default ./seedcore.db)
//	SEEDCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenRepository() (Repository, error) {
	driver := os.Getenv("SEEDCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageMemory)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("SEEDCORE_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("SEEDCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
