// Package storage composes the transaction stores. A durable table, when
// configured, is paired with a memory fallback that absorbs its faults.
package storage

import (
	"context"
	"log/slog"
	"sort"

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/metrics"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/models"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage/memory"
)

// DurableStore persists to a DurableTable. Read and write faults are logged
// and served from the memory fallback instead; persistence is best-effort.
type DurableStore struct {
	table      interfaces.DurableTable
	fallback   *memory.Store
	allowClear bool
	logger     *slog.Logger
}

// NewDurableStore wraps table. allowClear is the operator override that
// permits Clear on a durable deployment.
func NewDurableStore(table interfaces.DurableTable, fallback *memory.Store, allowClear bool, logger *slog.Logger) *DurableStore {
	if fallback == nil {
		fallback = memory.NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DurableStore{
		table:      table,
		fallback:   fallback,
		allowClear: allowClear,
		logger:     logger.With("component", "durable-store", "table", table.Name()),
	}
}

func (d *DurableStore) Insert(ctx context.Context, rec models.TransactionRecord) bool {
	if err := d.table.Put(ctx, rec); err != nil {
		d.logger.Warn("durable save failed, storing locally", "id", rec.ID, "error", err)
		metrics.StoreFallbacks.WithLabelValues("insert").Inc()
		d.fallback.Insert(ctx, rec)
		return false
	}
	return true
}

func (d *DurableStore) Scan(ctx context.Context, limit int) []models.TransactionRecord {
	items, err := d.table.Scan(ctx, limit)
	if err != nil {
		d.logger.Warn("durable fetch failed, serving local records", "error", err)
		metrics.StoreFallbacks.WithLabelValues("scan").Inc()
		return d.fallback.Scan(ctx, limit)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Clear refuses unless the override is set, and then only drops the local
// fallback records. Durable data is never deleted from here.
func (d *DurableStore) Clear(ctx context.Context) error {
	if !d.allowClear {
		return interfaces.ErrForbidden
	}
	return d.fallback.Clear(ctx)
}

func (d *DurableStore) Durable() bool { return true }

var _ interfaces.TransactionStore = (*DurableStore)(nil)
