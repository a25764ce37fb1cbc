package memory

import (
	"context" // request-scoped context, unused by the in-memory backend but part of the store contract
	"sync"    // concurrency primitives for guarding the ring buffer

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces" // interface TransactionStore
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"                // domain models: TransactionRecord
)

// DefaultCapacity is the number of records kept before the oldest is evicted.
const DefaultCapacity = 200

// Store is an in-memory implementation of interfaces.TransactionStore.
// Records are kept newest-first in a bounded slice that evicts the oldest
// record on overflow. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex                 // guards records; insert-then-evict is a compound operation
	records  []models.TransactionRecord // newest first
	capacity int
}

// NewStore creates a Store holding at most DefaultCapacity records.
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultCapacity)
}

// NewStoreWithCapacity creates a Store with a custom bound. Non-positive
// values fall back to DefaultCapacity.
func NewStoreWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		records:  make([]models.TransactionRecord, 0, capacity+1),
		capacity: capacity,
	}
}

// Insert puts rec at the front of the buffer, evicting the oldest record if
// the buffer is full. Always returns false since nothing is persisted durably.
func (m *Store) Insert(ctx context.Context, rec models.TransactionRecord) bool {
	m.mu.Lock()         // lock to make prepend + evict atomic
	defer m.mu.Unlock() // unlock automatically when function exits

	m.records = append(m.records, models.TransactionRecord{}) // grow by one
	copy(m.records[1:], m.records)                            // shift everything back
	m.records[0] = rec

	if len(m.records) > m.capacity {
		m.records = m.records[:m.capacity] // drop the oldest
	}
	return false
}

// Scan returns a copy of up to limit records, newest first.
func (m *Store) Scan(ctx context.Context, limit int) []models.TransactionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	if limit >= 0 && limit < n {
		n = limit
	}

	// copy so callers can't modify internal state
	copied := make([]models.TransactionRecord, n)
	copy(copied, m.records[:n])
	return copied
}

// Clear drops every record.
func (m *Store) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = m.records[:0]
	return nil
}

// Len reports the number of records currently held.
func (m *Store) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Store) Durable() bool { return false }

// Compile-time check: ensure Store implements TransactionStore interface
var _ interfaces.TransactionStore = (*Store)(nil)
