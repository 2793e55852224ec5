package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/retailops/replenish/internal/domain"
)

// Report is the full exception output for one business date: the sorted
// records plus per-kind and per-severity counts.
type Report struct {
	Date        string             `json:"report_date"`
	GeneratedAt string             `json:"generated_at"`
	Summary     ReportSummary      `json:"summary"`
	Exceptions  []domain.Exception `json:"exceptions"`
}

// ReportSummary counts exceptions per kind and severity.
type ReportSummary struct {
	Total      int                          `json:"total_exceptions"`
	ByKind     map[domain.ExceptionKind]int `json:"by_kind"`
	BySeverity map[domain.Severity]int      `json:"by_severity"`
}

// DetectAnomalies classifies the business-signal exceptions over the run's
// aggregates: demand spikes beyond mean + sigma·stddev (population statistics
// over this run's SKU set only) and stock-outs where demand exists but
// nothing is on hand. Detection is observational; it never excludes a SKU
// from replenishment.
func DetectAnomalies(date string, demand domain.DemandAggregate, stock domain.StockAggregate, sigma float64) []domain.Exception {
	if sigma <= 0 {
		sigma = 3.0
	}

	skus := make([]string, 0, len(demand))
	for sku := range demand {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	exceptions := make([]domain.Exception, 0)

	if len(skus) > 0 {
		var sum float64
		for _, sku := range skus {
			sum += float64(demand[sku])
		}
		mean := sum / float64(len(skus))

		var variance float64
		for _, sku := range skus {
			d := float64(demand[sku]) - mean
			variance += d * d
		}
		variance /= float64(len(skus))
		threshold := mean + sigma*math.Sqrt(variance)

		for _, sku := range skus {
			if float64(demand[sku]) > threshold {
				exceptions = append(exceptions, domain.NewException(date, sku, domain.ExcDemandAnomaly,
					fmt.Sprintf("demand %d exceeds threshold %.1f (mean %.1f, sigma %.1f)", demand[sku], threshold, mean, sigma)))
			}
		}
	}

	for _, sku := range skus {
		if demand[sku] > 0 && stock[sku] == 0 {
			exceptions = append(exceptions, domain.NewException(date, sku, domain.ExcStockOut,
				fmt.Sprintf("demand %d with zero stock on hand", demand[sku])))
		}
	}

	return exceptions
}

// BuildReport merges exception records from all components into one report,
// sorted by severity rank, then kind, then SKU.
func BuildReport(date string, groups ...[]domain.Exception) Report {
	all := make([]domain.Exception, 0)
	for _, group := range groups {
		all = append(all, group...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Severity.Rank() != all[j].Severity.Rank() {
			return all[i].Severity.Rank() < all[j].Severity.Rank()
		}
		if all[i].Kind != all[j].Kind {
			return all[i].Kind < all[j].Kind
		}
		return all[i].SKU < all[j].SKU
	})

	summary := ReportSummary{
		Total:      len(all),
		ByKind:     make(map[domain.ExceptionKind]int),
		BySeverity: make(map[domain.Severity]int),
	}
	for _, exc := range all {
		summary.ByKind[exc.Kind]++
		summary.BySeverity[exc.Severity]++
	}

	return Report{
		Date:        date,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:     summary,
		Exceptions:  all,
	}
}

// RenderText produces the human-readable exception summary that accompanies
// the JSON report.
func (r Report) RenderText() string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "REPLENISHMENT EXCEPTION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Report Date: %s\n", r.Date)
	fmt.Fprintf(&b, "Generated:   %s\n", r.GeneratedAt)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "Total Exceptions: %d\n", r.Summary.Total)

	fmt.Fprintln(&b, "By Severity:")
	for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow} {
		if count := r.Summary.BySeverity[sev]; count > 0 {
			fmt.Fprintf(&b, "  - %s: %d\n", sev, count)
		}
	}

	fmt.Fprintln(&b, "By Kind:")
	kinds := make([]string, 0, len(r.Summary.ByKind))
	for kind := range r.Summary.ByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&b, "  - %s: %d\n", kind, r.Summary.ByKind[domain.ExceptionKind(kind)])
	}

	critical := make([]domain.Exception, 0)
	for _, exc := range r.Exceptions {
		if exc.Severity == domain.SeverityCritical || exc.Severity == domain.SeverityHigh {
			critical = append(critical, exc)
		}
	}
	if len(critical) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, thin)
		fmt.Fprintln(&b, "CRITICAL & HIGH PRIORITY")
		fmt.Fprintln(&b, thin)
		for _, exc := range critical {
			fmt.Fprintf(&b, "[%s] %s", exc.Severity, exc.Kind)
			if exc.SKU != "" {
				fmt.Fprintf(&b, " sku=%s", exc.SKU)
			}
			fmt.Fprintf(&b, ": %s\n", exc.Detail)
		}
	}

	fmt.Fprintln(&b, rule)
	return b.String()
}
