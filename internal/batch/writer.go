package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/engine"
	"github.com/retailops/replenish/internal/storage"
)

// Output document keys, all under output/{date}/. Writes overwrite whatever
// a previous attempt left behind, which is what makes a re-run from
// RAW_PRESENT idempotent.

func replenishmentKey(date string) string {
	return engine.OutputPrefix(date) + "replenishment_" + date + ".csv"
}

func exceptionsJSONKey(date string) string {
	return engine.OutputPrefix(date) + "exceptions_" + date + ".json"
}

func exceptionsTextKey(date string) string {
	return engine.OutputPrefix(date) + "exceptions_" + date + ".txt"
}

func supplierOrderKey(date, supplierID string) string {
	return engine.OutputPrefix(date) + "supplier_orders/" + supplierID + "_" + date + ".json"
}

func runSummaryKey(date string) string {
	return engine.OutputPrefix(date) + "run_summary_" + date + ".txt"
}

// writer renders and persists the run's output documents.
type writer struct {
	store     storage.EventStore
	opTimeout time.Duration
}

func (w *writer) put(ctx context.Context, key string, data []byte) error {
	opCtx, cancel := context.WithTimeout(ctx, w.opTimeout)
	defer cancel()
	if err := w.store.PutObject(opCtx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// writeAll persists every output document for the date. All documents must
// land before the run may report OUTPUTS_WRITTEN.
func (w *writer) writeAll(ctx context.Context, date string, lines []domain.NetDemandLine, orders []domain.SupplierOrder, report engine.Report, summary string) (int, error) {
	written := 0

	if err := w.put(ctx, replenishmentKey(date), renderReplenishmentCSV(lines)); err != nil {
		return written, err
	}
	written++

	for _, order := range orders {
		payload, err := json.MarshalIndent(order, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode order %s: %w", order.OrderID, err)
		}
		if err := w.put(ctx, supplierOrderKey(date, order.SupplierID), payload); err != nil {
			return written, err
		}
		written++
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return written, fmt.Errorf("failed to encode exception report: %w", err)
	}
	if err := w.put(ctx, exceptionsJSONKey(date), reportJSON); err != nil {
		return written, err
	}
	written++

	if err := w.put(ctx, exceptionsTextKey(date), []byte(report.RenderText())); err != nil {
		return written, err
	}
	written++

	if err := w.put(ctx, runSummaryKey(date), []byte(summary)); err != nil {
		return written, err
	}
	written++

	return written, nil
}

// renderReplenishmentCSV renders the audit summary table, one row per
// net-demand line including the zero-need lines.
func renderReplenishmentCSV(lines []domain.NetDemandLine) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	cw.Write([]string{"sku", "product_name", "total_demand", "total_stock", "net_demand", "cases_needed", "order_quantity", "supplier_id"})
	for _, line := range lines {
		cw.Write([]string{
			line.SKU,
			line.ProductName,
			strconv.Itoa(line.TotalDemand),
			strconv.Itoa(line.TotalStock),
			strconv.Itoa(line.NetDemand),
			strconv.Itoa(line.CasesNeeded),
			strconv.Itoa(line.OrderQuantity),
			line.SupplierID,
		})
	}
	cw.Flush()

	return buf.Bytes()
}

// renderRunSummary renders the human-readable run report.
func renderRunSummary(date string, started, finished time.Time, lines []domain.NetDemandLine, orders []domain.SupplierOrder, report engine.Report) string {
	reorder := 0
	totalUnits := 0
	for _, line := range lines {
		if line.NetDemand > 0 {
			reorder++
			totalUnits += line.OrderQuantity
		}
	}

	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "REPLENISHMENT RUN SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Business Date:   %s\n", date)
	fmt.Fprintf(&b, "Started:         %s\n", started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished:        %s\n", finished.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:        %s\n", finished.Sub(started).Round(time.Millisecond))
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	fmt.Fprintf(&b, "SKUs analyzed:   %d\n", len(lines))
	fmt.Fprintf(&b, "SKUs to reorder: %d\n", reorder)
	fmt.Fprintf(&b, "Units to order:  %d\n", totalUnits)
	fmt.Fprintf(&b, "Supplier orders: %d\n", len(orders))
	fmt.Fprintf(&b, "Exceptions:      %d\n", report.Summary.Total)
	fmt.Fprintln(&b, rule)
	return b.String()
}
