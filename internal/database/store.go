package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/config"
	"github.com/at-ishikawa/leakdrill/internal/memstore"
	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/store"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

// SQLStore implements store.Store on a SQL database.
type SQLStore struct {
	db *sqlx.DB
}

// NewStore creates a new SQLStore.
func NewStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Queue returns a queue repository outside any transaction.
func (s *SQLStore) Queue() queue.Repository {
	return queue.NewDBRepository(s.db)
}

// Events returns an event log outside any transaction.
func (s *SQLStore) Events() training.EventLog {
	return training.NewDBEventLog(s.db)
}

// InTx runs fn with repositories bound to a single transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	return RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, txRepositories{tx: tx})
	})
}

type txRepositories struct {
	tx *sqlx.Tx
}

func (r txRepositories) Queue() queue.Repository {
	return queue.NewDBRepository(r.tx)
}

func (r txRepositories) Events() training.EventLog {
	return training.NewDBEventLog(r.tx)
}

// OpenStore returns the store selected by cfg. The returned *sqlx.DB is nil for the
// memory driver; otherwise the caller closes it.
func OpenStore(cfg config.DatabaseConfig) (store.Store, *sqlx.DB, error) {
	if cfg.Driver == config.DriverMemory {
		return memstore.New(), nil, nil
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("Open() > %w", err)
	}
	return NewStore(db), db, nil
}
