package masterdata

import (
	"context"
	"fmt"

	"github.com/retailops/replenish/internal/domain"
)

// Source supplies the joined product/rule/supplier rows for a run. The
// calculator fetches them exactly once per business date.
type Source interface {
	FetchMasterData(ctx context.Context) ([]domain.MasterRecord, error)
}

type repository struct {
	db *DB
}

// NewRepository creates a read-only master-data repository.
func NewRepository(db *DB) Source {
	return &repository{db: db}
}

// FetchMasterData returns one row per product with its replenishment rule and
// supplier resolved. Products without a rule come back with has_rule = false
// and defaults the calculator can apply directly; rules pointing at unknown
// suppliers come back with an empty supplier_name so the exporter can flag
// them as unroutable.
func (r *repository) FetchMasterData(ctx context.Context) ([]domain.MasterRecord, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := `
		SELECT
			p.sku,
			p.product_name,
			p.category,
			p.case_size,
			r.sku IS NOT NULL AS has_rule,
			COALESCE(r.moq, 1) AS moq,
			COALESCE(r.safety_stock_level, 0) AS safety_stock_level,
			COALESCE(r.supplier_id, '') AS supplier_id,
			COALESCE(s.supplier_name, '') AS supplier_name,
			COALESCE(s.lead_time_days, 0) AS lead_time_days
		FROM products p
		LEFT JOIN replenishment_rules r ON p.sku = r.sku
		LEFT JOIN suppliers s ON r.supplier_id = s.supplier_id
		ORDER BY p.sku
	`

	records := make([]domain.MasterRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to fetch master data: %w", err)
	}

	return records, nil
}

// Index builds the per-SKU lookup the calculator joins against.
func Index(records []domain.MasterRecord) map[string]domain.MasterRecord {
	index := make(map[string]domain.MasterRecord, len(records))
	for _, rec := range records {
		index[rec.SKU] = rec
	}
	return index
}
