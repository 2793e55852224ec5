package engine

import (
	"strings"
	"testing"

	"github.com/retailops/replenish/internal/domain"
)

func TestDetectAnomaliesFlagsSpike(t *testing.T) {
	demand := domain.DemandAggregate{}
	stock := domain.StockAggregate{}
	for _, sku := range []string{"SKU-0001", "SKU-0002", "SKU-0003", "SKU-0004", "SKU-0005"} {
		demand[sku] = 10
		stock[sku] = 100
	}
	demand["SKU-9000"] = 500
	stock["SKU-9000"] = 100

	excs := DetectAnomalies("2026-01-03", demand, stock, 3.0)

	found := false
	for _, exc := range excs {
		if exc.Kind == domain.ExcDemandAnomaly {
			if exc.SKU != "SKU-9000" {
				t.Errorf("anomaly flagged on %s, want SKU-9000", exc.SKU)
			}
			if exc.Severity != domain.SeverityMedium {
				t.Errorf("anomaly severity = %s, want MEDIUM", exc.Severity)
			}
			found = true
		}
	}
	if !found {
		t.Error("expected DEMAND_ANOMALY for the spiking SKU")
	}
}

func TestDetectAnomaliesUniformDemand(t *testing.T) {
	demand := domain.DemandAggregate{"SKU-0001": 10, "SKU-0002": 10, "SKU-0003": 10}
	stock := domain.StockAggregate{"SKU-0001": 5, "SKU-0002": 5, "SKU-0003": 5}

	for _, exc := range DetectAnomalies("2026-01-03", demand, stock, 3.0) {
		if exc.Kind == domain.ExcDemandAnomaly {
			t.Fatalf("uniform demand must not flag anomalies, got %+v", exc)
		}
	}
}

func TestDetectAnomaliesStockOut(t *testing.T) {
	demand := domain.DemandAggregate{"SKU-0001": 10, "SKU-0002": 10}
	stock := domain.StockAggregate{"SKU-0001": 0, "SKU-0002": 3}

	excs := DetectAnomalies("2026-01-03", demand, stock, 3.0)

	var stockOuts []domain.Exception
	for _, exc := range excs {
		if exc.Kind == domain.ExcStockOut {
			stockOuts = append(stockOuts, exc)
		}
	}
	if len(stockOuts) != 1 || stockOuts[0].SKU != "SKU-0001" {
		t.Fatalf("expected one STOCK_OUT for SKU-0001, got %+v", stockOuts)
	}
	if stockOuts[0].Severity != domain.SeverityCritical {
		t.Errorf("stock-out severity = %s, want CRITICAL", stockOuts[0].Severity)
	}
}

func TestBuildReportSortsBySeverity(t *testing.T) {
	a := domain.NewException("2026-01-03", "SKU-0002", domain.ExcMissingRule, "no rule")
	b := domain.NewException("2026-01-03", "SKU-0001", domain.ExcStockOut, "out of stock")
	c := domain.NewException("2026-01-03", "SKU-0003", domain.ExcUnmappedSKU, "no product")

	report := BuildReport("2026-01-03", []domain.Exception{a}, []domain.Exception{b, c})

	if report.Summary.Total != 3 {
		t.Fatalf("total = %d, want 3", report.Summary.Total)
	}
	if report.Exceptions[0].Kind != domain.ExcStockOut {
		t.Errorf("first exception = %s, want the CRITICAL stock-out", report.Exceptions[0].Kind)
	}
	if report.Exceptions[1].Kind != domain.ExcUnmappedSKU {
		t.Errorf("second exception = %s, want the HIGH unmapped SKU", report.Exceptions[1].Kind)
	}
	if report.Summary.BySeverity[domain.SeverityCritical] != 1 {
		t.Errorf("critical count = %d, want 1", report.Summary.BySeverity[domain.SeverityCritical])
	}
	if report.Summary.ByKind[domain.ExcMissingRule] != 1 {
		t.Errorf("missing-rule count = %d, want 1", report.Summary.ByKind[domain.ExcMissingRule])
	}
}

func TestReportRenderTextIncludesCriticalDetail(t *testing.T) {
	report := BuildReport("2026-01-03",
		[]domain.Exception{domain.NewException("2026-01-03", "SKU-0001", domain.ExcStockOut, "demand 10 with zero stock on hand")},
	)

	text := report.RenderText()
	if !strings.Contains(text, "CRITICAL & HIGH PRIORITY") {
		t.Error("text report missing the critical section")
	}
	if !strings.Contains(text, "SKU-0001") {
		t.Error("text report missing the stock-out SKU")
	}
	if !strings.Contains(text, "Total Exceptions: 1") {
		t.Error("text report missing the total count")
	}
}
