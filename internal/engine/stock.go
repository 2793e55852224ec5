package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/storage"
	"github.com/retailops/replenish/pkg/logger"
)

// AggregateStock reads every warehouse snapshot file under stock/{date}/ and
// sums quantity_on_hand per SKU across warehouses. Isolation here is
// row-level, stricter than the order aggregator: a row with a non-numeric or
// negative quantity is dropped and flagged while the rest of the file still
// counts.
func AggregateStock(ctx context.Context, store storage.EventStore, date string, opts Options) (domain.StockAggregate, AggregateStats, []domain.Exception, error) {
	log := logger.Component("stock_aggregator")

	prefix := StockPrefix(date)
	listCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	objects, err := store.ListObjects(listCtx, prefix)
	cancel()
	if err != nil {
		return nil, AggregateStats{}, nil, fmt.Errorf("failed to list stock partition %s: %w", prefix, err)
	}

	log.Info().Str("date", date).Int("files", len(objects)).Msg("aggregating stock")

	results, err := forEachObject(ctx, store, objects, opts, func(ctx context.Context, key string) fileResult {
		data, err := store.GetObject(ctx, key)
		if err != nil {
			return fileResult{key: key, skipped: true, excs: []excEntry{{detail: fmt.Sprintf("unreadable stock file %s: %v", path.Base(key), err)}}}
		}
		return parseStockCSV(key, data)
	})
	if err != nil {
		return nil, AggregateStats{}, nil, err
	}

	stock := make(domain.StockAggregate)
	stats := AggregateStats{}
	exceptions := make([]domain.Exception, 0)

	for _, res := range results {
		if res.skipped {
			stats.FilesSkipped++
		} else {
			stats.FilesRead++
			for sku, qty := range res.counts {
				stock[sku] += qty
			}
		}
		for _, e := range res.excs {
			exceptions = append(exceptions, domain.NewException(date, e.sku, domain.ExcMalformedInput, e.detail))
		}
	}

	log.Info().
		Str("date", date).
		Int("files_read", stats.FilesRead).
		Int("files_skipped", stats.FilesSkipped).
		Int("skus", len(stock)).
		Msg("stock aggregation complete")

	return stock, stats, exceptions, nil
}

// parseStockCSV reads one warehouse CSV. The whole file is skipped only when
// the header itself is unreadable; anything row-level is isolated.
func parseStockCSV(key string, data []byte) fileResult {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fileResult{key: key, skipped: true, excs: []excEntry{{detail: fmt.Sprintf("malformed stock file %s: %v", path.Base(key), err)}}}
	}

	colIndex := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	idxSKU := colIndex("sku")
	idxQty := colIndex("quantity")
	if idxSKU < 0 || idxQty < 0 {
		return fileResult{key: key, skipped: true, excs: []excEntry{{detail: fmt.Sprintf("stock file %s missing sku/quantity columns", path.Base(key))}}}
	}

	counts := make(map[string]int)
	excs := make([]excEntry, 0)
	rowNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			excs = append(excs, excEntry{detail: fmt.Sprintf("%s row %d: %v", path.Base(key), rowNum, err)})
			continue
		}
		if idxSKU >= len(record) || idxQty >= len(record) {
			excs = append(excs, excEntry{detail: fmt.Sprintf("%s row %d: too few fields", path.Base(key), rowNum)})
			continue
		}

		sku := strings.TrimSpace(record[idxSKU])
		qty, err := strconv.Atoi(strings.TrimSpace(record[idxQty]))
		if err != nil || qty < 0 || sku == "" {
			excs = append(excs, excEntry{sku: sku, detail: fmt.Sprintf("%s row %d: invalid quantity %q", path.Base(key), rowNum, record[idxQty])})
			continue
		}

		counts[sku] += qty
	}

	return fileResult{key: key, counts: counts, excs: excs}
}
