// Package store defines the transaction boundary shared by the SQL and in-memory backends.
package store

import (
	"context"

	"github.com/at-ishikawa/leakdrill/internal/queue"
	"github.com/at-ishikawa/leakdrill/internal/training"
)

//go:generate mockgen -source=store.go -destination=../mocks/store/mock_store.go -package=mock_store

// Repositories gives access to the repositories bound to one connection or transaction.
type Repositories interface {
	Queue() queue.Repository
	Events() training.EventLog
}

// Store is a Repositories that can also run a unit of work atomically.
// Writes made through the Repositories passed to fn are committed only when fn returns nil.
type Store interface {
	Repositories
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
