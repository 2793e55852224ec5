// Package batch owns the daily run lifecycle: status derivation from store
// listings, the run sequence itself, idempotent archival, and reprocessing.
// No state lives outside the event store; every status answer is recomputed
// from what the partitions currently hold.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/engine"
	"github.com/retailops/replenish/internal/masterdata"
	"github.com/retailops/replenish/internal/storage"
	"github.com/retailops/replenish/pkg/logger"
)

var (
	// ErrNoInput means the date has no raw order or stock files at all.
	ErrNoInput = errors.New("no raw input files for date")

	// ErrNoReadableInput means files were present but none could be parsed.
	ErrNoReadableInput = errors.New("no readable input files for date")

	// ErrArchivalPartial means outputs were written but some raw files could
	// not be moved to processed/. The run is safe to retry.
	ErrArchivalPartial = errors.New("archival incomplete")

	// ErrInvalidDate means the date argument is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid business date")
)

// Controller drives the replenishment batch for one store and master-data
// source. It is safe for concurrent use; all per-run state is local.
type Controller struct {
	store  storage.EventStore
	master masterdata.Source
	opts   engine.Options
	sigma  float64
	log    zerolog.Logger
}

// NewController wires a controller from the pipeline configuration.
func NewController(store storage.EventStore, master masterdata.Source, cfg config.PipelineConfig) *Controller {
	return &Controller{
		store:  store,
		master: master,
		opts: engine.Options{
			WorkerCount: cfg.WorkerCount,
			OpTimeout:   cfg.OpTimeout(),
		},
		sigma: cfg.AnomalySigma,
		log:   logger.Component("batch_controller"),
	}
}

// RunResult summarizes one completed run.
type RunResult struct {
	Date           string                 `json:"date"`
	Status         domain.BatchStatus     `json:"status"`
	Started        time.Time              `json:"started"`
	Finished       time.Time              `json:"finished"`
	SKUsAnalyzed   int                    `json:"skus_analyzed"`
	OrdersExported int                    `json:"orders_exported"`
	Exceptions     int                    `json:"exceptions"`
	OutputsWritten int                    `json:"outputs_written"`
	FilesArchived  int                    `json:"files_archived"`
	Lines          []domain.NetDemandLine `json:"-"`
	Orders         []domain.SupplierOrder `json:"-"`
	Report         engine.Report          `json:"-"`
}

// ValidateDate checks a business date argument before it reaches the store.
func ValidateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// Run executes the full batch sequence for one business date: aggregate
// demand and stock, compute net demand against master data, detect anomalies,
// export supplier orders, write all output documents, then archive the raw
// inputs. Outputs are written before archival so a crash between the two
// leaves the date retryable, never half-processed.
//
// Only errors that prevent any useful output abort the run: an invalid date,
// an empty input partition, an unreachable master source, or a store failure
// while writing outputs. Malformed files and rows are exceptions, not errors.
func (c *Controller) Run(ctx context.Context, date string) (*RunResult, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	started := time.Now()
	c.log.Info().Str("date", date).Msg("starting replenishment run")

	rawOrders, rawStock, err := c.listRaw(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(rawOrders)+len(rawStock) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, date)
	}

	masterCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	records, err := c.master.FetchMasterData(masterCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch master data: %w", err)
	}
	master := masterdata.Index(records)

	demand, demandStats, demandExcs, err := engine.AggregateDemand(ctx, c.store, date, c.opts)
	if err != nil {
		return nil, err
	}
	stock, stockStats, stockExcs, err := engine.AggregateStock(ctx, c.store, date, c.opts)
	if err != nil {
		return nil, err
	}
	if demandStats.FilesRead+stockStats.FilesRead == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReadableInput, date)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, ruleExcs := engine.ComputeNetDemand(date, demand, stock, master)
	anomalyExcs := engine.DetectAnomalies(date, demand, stock, c.sigma)
	orders, routeExcs := engine.ExportSupplierOrders(date, lines, master)
	report := engine.BuildReport(date, demandExcs, stockExcs, ruleExcs, anomalyExcs, routeExcs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &writer{store: c.store, opTimeout: c.opts.OpTimeout}
	finished := time.Now()
	summary := renderRunSummary(date, started, finished, lines, orders, report)
	written, err := w.writeAll(ctx, date, lines, orders, report, summary)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Date:           date,
		Status:         domain.StatusOutputsWritten,
		Started:        started,
		Finished:       finished,
		SKUsAnalyzed:   len(lines),
		OrdersExported: len(orders),
		Exceptions:     report.Summary.Total,
		OutputsWritten: written,
	}
	result.Lines = lines
	result.Orders = orders
	result.Report = report

	moved, archiveErr := c.Archive(ctx, date)
	result.FilesArchived = moved
	if archiveErr != nil {
		c.log.Warn().Str("date", date).Err(archiveErr).Msg("archival incomplete, outputs intact")
		return result, fmt.Errorf("%w: %v", ErrArchivalPartial, archiveErr)
	}
	result.Status = domain.StatusArchived

	c.log.Info().
		Str("date", date).
		Int("skus", len(lines)).
		Int("orders", len(orders)).
		Int("exceptions", report.Summary.Total).
		Int("files_archived", moved).
		Dur("duration", finished.Sub(started)).
		Msg("replenishment run complete")

	return result, nil
}

// Status derives the batch state for a date purely from store listings. There
// is no status record to drift out of sync with reality.
func (c *Controller) Status(ctx context.Context, date string) (*domain.BatchRun, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	rawOrders, rawStock, err := c.listRaw(ctx, date)
	if err != nil {
		return nil, err
	}
	outputs, err := c.list(ctx, engine.OutputPrefix(date))
	if err != nil {
		return nil, err
	}
	procOrders, err := c.list(ctx, engine.ProcessedOrdersPrefix(date))
	if err != nil {
		return nil, err
	}
	procStock, err := c.list(ctx, engine.ProcessedStockPrefix(date))
	if err != nil {
		return nil, err
	}

	raw := len(rawOrders) + len(rawStock)
	processed := len(procOrders) + len(procStock)

	run := &domain.BatchRun{
		Date:            date,
		InputFileCount:  raw,
		OutputFileCount: len(outputs),
		ArchivedCount:   processed,
	}

	switch {
	case raw > 0 && len(outputs) == 0:
		run.Status = domain.StatusRawPresent
	case raw > 0 && len(outputs) > 0:
		// Outputs exist but raw files remain: a run that died mid-archival.
		run.Status = domain.StatusOutputsWritten
	case len(outputs) > 0 && processed > 0:
		run.Status = domain.StatusArchived
	default:
		run.Status = domain.StatusPending
	}

	return run, nil
}

// Archive moves the date's remaining raw files under processed/, preserving
// relative paths. Already-moved files are skipped via MoveObject's no-op
// semantics, so a retry after a partial failure only touches the leftovers.
func (c *Controller) Archive(ctx context.Context, date string) (int, error) {
	rawOrders, rawStock, err := c.listRaw(ctx, date)
	if err != nil {
		return 0, err
	}

	moved := 0
	var failures []string
	for _, obj := range append(rawOrders, rawStock...) {
		opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
		err := c.store.MoveObject(opCtx, obj.Key, engine.ProcessedKey(obj.Key))
		cancel()
		if err != nil {
			c.log.Warn().Str("key", obj.Key).Err(err).Msg("failed to archive raw file")
			failures = append(failures, obj.Key)
			continue
		}
		moved++
	}

	if len(failures) > 0 {
		return moved, fmt.Errorf("%d of %d raw files not archived", len(failures), moved+len(failures))
	}
	return moved, nil
}

// Reprocess moves a date's archived inputs back to their raw locations,
// deletes the stale outputs, and runs the batch again. Because the engine is
// deterministic, the regenerated outputs match the originals for an unchanged
// input set.
func (c *Controller) Reprocess(ctx context.Context, date string) (*RunResult, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	c.log.Info().Str("date", date).Msg("reprocessing date")

	procOrders, err := c.list(ctx, engine.ProcessedOrdersPrefix(date))
	if err != nil {
		return nil, err
	}
	procStock, err := c.list(ctx, engine.ProcessedStockPrefix(date))
	if err != nil {
		return nil, err
	}

	for _, obj := range append(procOrders, procStock...) {
		rawKey := obj.Key[len("processed/"):]
		opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
		err := c.store.MoveObject(opCtx, obj.Key, rawKey)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to restore %s: %w", obj.Key, err)
		}
	}

	outputs, err := c.list(ctx, engine.OutputPrefix(date))
	if err != nil {
		return nil, err
	}
	for _, obj := range outputs {
		opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
		err := c.store.RemoveObject(opCtx, obj.Key)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to remove stale output %s: %w", obj.Key, err)
		}
	}

	return c.Run(ctx, date)
}

func (c *Controller) listRaw(ctx context.Context, date string) ([]storage.ObjectInfo, []storage.ObjectInfo, error) {
	orders, err := c.list(ctx, engine.OrdersPrefix(date))
	if err != nil {
		return nil, nil, err
	}
	stock, err := c.list(ctx, engine.StockPrefix(date))
	if err != nil {
		return nil, nil, err
	}
	return orders, stock, nil
}

func (c *Controller) list(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()
	objects, err := c.store.ListObjects(opCtx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return objects, nil
}
