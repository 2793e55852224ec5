package batch

import (
	"strings"
	"testing"
	"time"

	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/engine"
)

func TestRenderReplenishmentCSV(t *testing.T) {
	lines := []domain.NetDemandLine{
		{SKU: "SKU-0001", ProductName: "Cola 330ml", TotalDemand: 50, TotalStock: 20,
			NetDemand: 40, CasesNeeded: 4, OrderQuantity: 48, SupplierID: "SUP-001"},
		{SKU: "SKU-0002", ProductName: "Chips 150g", TotalDemand: 30, TotalStock: 100,
			NetDemand: 0, CasesNeeded: 0, OrderQuantity: 0, SupplierID: "SUP-002"},
	}

	out := string(renderReplenishmentCSV(lines))
	rows := strings.Split(strings.TrimSpace(out), "\n")
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0] != "sku,product_name,total_demand,total_stock,net_demand,cases_needed,order_quantity,supplier_id" {
		t.Errorf("header = %q", rows[0])
	}
	if rows[1] != "SKU-0001,Cola 330ml,50,20,40,4,48,SUP-001" {
		t.Errorf("row 1 = %q", rows[1])
	}
	// Zero-need lines stay in the audit table.
	if rows[2] != "SKU-0002,Chips 150g,30,100,0,0,0,SUP-002" {
		t.Errorf("row 2 = %q", rows[2])
	}
}

func TestOutputKeysPartitionedByDate(t *testing.T) {
	date := "2026-01-03"

	keys := []string{
		replenishmentKey(date),
		exceptionsJSONKey(date),
		exceptionsTextKey(date),
		runSummaryKey(date),
		supplierOrderKey(date, "SUP-001"),
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, "output/2026-01-03/") {
			t.Errorf("key %s outside the date partition", key)
		}
	}
	if supplierOrderKey(date, "SUP-001") != "output/2026-01-03/supplier_orders/SUP-001_2026-01-03.json" {
		t.Errorf("supplier order key = %s", supplierOrderKey(date, "SUP-001"))
	}
}

func TestRenderRunSummaryTotals(t *testing.T) {
	lines := []domain.NetDemandLine{
		{SKU: "SKU-0001", NetDemand: 40, OrderQuantity: 48},
		{SKU: "SKU-0002", NetDemand: 0, OrderQuantity: 0},
	}
	orders := []domain.SupplierOrder{{OrderID: "ORD-20260103-001-001"}}
	report := engine.BuildReport("2026-01-03")

	now := time.Now()
	text := renderRunSummary("2026-01-03", now, now.Add(2*time.Second), lines, orders, report)

	for _, want := range []string{
		"Business Date:   2026-01-03",
		"SKUs analyzed:   2",
		"SKUs to reorder: 1",
		"Units to order:  48",
		"Supplier orders: 1",
		"Exceptions:      0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}
