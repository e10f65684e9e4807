package core

import (
	"fmt"
	"os"

	"gclabcore/internal/infra/persistence/memory"
	"gclabcore/internal/infra/persistence/postgres"
	"gclabcore/internal/infra/persistence/sqlite"
	"gclabcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// NewDefaultRulesEngine builds a rules engine with the built-in integrity
// rule set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewTargetValidityRule())
	engine.Register(NewObservationOrderRule())
	return engine
}

// NewMemoryStore constructs the in-memory reference store.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	GCLAB_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GCLAB_SQLITE_PATH: path to sqlite file (default ./gclab.db)
//	GCLAB_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("GCLAB_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("GCLAB_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("GCLAB_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
