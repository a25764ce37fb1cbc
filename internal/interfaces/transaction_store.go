package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
)

// ErrForbidden is returned by Clear when a durable table backs the store
// and the operator has not allowed clearing.
var ErrForbidden = errors.New("clearing durable transaction records is disabled in this environment")

// TransactionStore owns persisted transaction records.
type TransactionStore interface {
	// Insert stores rec and reports whether it reached durable storage.
	// It never fails the caller: durable faults fall back to memory.
	Insert(ctx context.Context, rec models.TransactionRecord) bool
	// Scan returns up to limit records, newest first.
	Scan(ctx context.Context, limit int) []models.TransactionRecord
	Clear(ctx context.Context) error
	Durable() bool
}

// DurableTable is an externally managed keyed table (DynamoDB, Postgres).
// Order of Scan results is not guaranteed.
type DurableTable interface {
	Put(ctx context.Context, rec models.TransactionRecord) error
	Scan(ctx context.Context, limit int) ([]models.TransactionRecord, error)
	Name() string
}
