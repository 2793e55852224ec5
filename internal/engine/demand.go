package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/storage"
	"github.com/retailops/replenish/pkg/logger"
)

// AggregateDemand reads every POS order file under orders/{date}/ and sums
// line-item quantities per SKU. A file that cannot be read or parsed is
// skipped whole and surfaced as a MALFORMED_INPUT exception; the remaining
// files still aggregate (file-level isolation).
func AggregateDemand(ctx context.Context, store storage.EventStore, date string, opts Options) (domain.DemandAggregate, AggregateStats, []domain.Exception, error) {
	log := logger.Component("demand_aggregator")

	prefix := OrdersPrefix(date)
	listCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	objects, err := store.ListObjects(listCtx, prefix)
	cancel()
	if err != nil {
		return nil, AggregateStats{}, nil, fmt.Errorf("failed to list order partition %s: %w", prefix, err)
	}

	log.Info().Str("date", date).Int("files", len(objects)).Msg("aggregating demand")

	results, err := forEachObject(ctx, store, objects, opts, func(ctx context.Context, key string) fileResult {
		data, err := store.GetObject(ctx, key)
		if err != nil {
			return fileResult{key: key, skipped: true, excs: []excEntry{{detail: fmt.Sprintf("unreadable order file %s: %v", path.Base(key), err)}}}
		}

		var events []domain.OrderEvent
		if err := json.Unmarshal(data, &events); err != nil {
			return fileResult{key: key, skipped: true, excs: []excEntry{{detail: fmt.Sprintf("malformed order file %s: %v", path.Base(key), err)}}}
		}

		counts := make(map[string]int)
		for _, event := range events {
			for _, item := range event.Items {
				counts[item.SKU] += item.Quantity
			}
		}
		return fileResult{key: key, counts: counts}
	})
	if err != nil {
		return nil, AggregateStats{}, nil, err
	}

	demand := make(domain.DemandAggregate)
	stats := AggregateStats{}
	exceptions := make([]domain.Exception, 0)

	for _, res := range results {
		if res.skipped {
			stats.FilesSkipped++
			for _, e := range res.excs {
				exceptions = append(exceptions, domain.NewException(date, e.sku, domain.ExcMalformedInput, e.detail))
			}
			continue
		}
		stats.FilesRead++
		for sku, qty := range res.counts {
			demand[sku] += qty
		}
	}

	log.Info().
		Str("date", date).
		Int("files_read", stats.FilesRead).
		Int("files_skipped", stats.FilesSkipped).
		Int("skus", len(demand)).
		Msg("demand aggregation complete")

	return demand, stats, exceptions, nil
}
