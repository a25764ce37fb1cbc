package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/logging"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage/memory"
)

// fakeTable is an unordered DurableTable with injectable failures.
type fakeTable struct {
	mu      sync.Mutex
	items   []models.TransactionRecord
	putErr  error
	scanErr error
}

func (f *fakeTable) Put(ctx context.Context, rec models.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.items = append(f.items, rec)
	return nil
}

func (f *fakeTable) Scan(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := make([]models.TransactionRecord, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeTable) Name() string { return "fake" }

func rec(id string, ts int64) models.TransactionRecord {
	return models.TransactionRecord{
		ID:        id,
		Timestamp: ts,
		User:      "bob",
		Amount:    decimal.NewFromInt(42),
		Currency:  "EUR",
		Merchant:  "Shop",
		RiskLevel: models.RiskLow,
	}
}

func TestDurableStore_InsertSuccess(t *testing.T) {
	table := &fakeTable{}
	fallback := memory.NewStore()
	s := NewDurableStore(table, fallback, false, logging.Discard())

	assert.True(t, s.Insert(context.Background(), rec("a", 1)))
	assert.Len(t, table.items, 1)
	assert.Equal(t, 0, fallback.Len())
	assert.True(t, s.Durable())
}

func TestDurableStore_InsertFailureFallsBackToMemory(t *testing.T) {
	table := &fakeTable{putErr: errors.New("throttled")}
	fallback := memory.NewStore()
	s := NewDurableStore(table, fallback, false, logging.Discard())

	assert.False(t, s.Insert(context.Background(), rec("a", 1)))
	assert.Empty(t, table.items)
	assert.Equal(t, 1, fallback.Len())
}

func TestDurableStore_ScanSortsNewestFirstAndTruncates(t *testing.T) {
	table := &fakeTable{items: []models.TransactionRecord{
		rec("mid", 20), rec("old", 10), rec("newest", 40), rec("new", 30),
	}}
	s := NewDurableStore(table, nil, false, logging.Discard())

	got := s.Scan(context.Background(), 3)
	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].ID)
	assert.Equal(t, "new", got[1].ID)
	assert.Equal(t, "mid", got[2].ID)
}

func TestDurableStore_ScanFailureServesFallback(t *testing.T) {
	table := &fakeTable{scanErr: errors.New("unreachable")}
	fallback := memory.NewStore()
	fallback.Insert(context.Background(), rec("local", 5))
	s := NewDurableStore(table, fallback, false, logging.Discard())

	got := s.Scan(context.Background(), 10)
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].ID)
}

func TestDurableStore_ClearForbiddenWithoutOverride(t *testing.T) {
	table := &fakeTable{items: []models.TransactionRecord{rec("a", 1)}}
	s := NewDurableStore(table, nil, false, logging.Discard())

	err := s.Clear(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrForbidden)
	assert.Len(t, s.Scan(context.Background(), 10), 1, "data must stay intact")
}

func TestDurableStore_ClearWithOverrideOnlyDropsFallback(t *testing.T) {
	table := &fakeTable{items: []models.TransactionRecord{rec("a", 1)}}
	fallback := memory.NewStore()
	fallback.Insert(context.Background(), rec("local", 2))
	s := NewDurableStore(table, fallback, true, logging.Discard())

	require.NoError(t, s.Clear(context.Background()))
	assert.Equal(t, 0, fallback.Len())
	assert.Len(t, table.items, 1)
}
