// internal/domain/exception.go
package domain

// ExceptionKind classifies a diagnostic finding. Exceptions never abort a
// run; they are recorded alongside the replenishment output.
type ExceptionKind string

const (
	ExcMalformedInput  ExceptionKind = "MALFORMED_INPUT"
	ExcUnmappedSKU     ExceptionKind = "UNMAPPED_SKU"
	ExcMissingRule     ExceptionKind = "MISSING_RULE"
	ExcDemandAnomaly   ExceptionKind = "DEMAND_ANOMALY"
	ExcStockOut        ExceptionKind = "STOCK_OUT"
	ExcUnroutableOrder ExceptionKind = "UNROUTABLE_ORDER"
)

// Severity ranks an exception for reporting. Lower rank sorts first.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

var severityRank = map[Severity]int{
	SeverityCritical: 1,
	SeverityHigh:     2,
	SeverityMedium:   3,
	SeverityLow:      4,
}

// Rank returns the sort order of a severity; unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return 99
}

// SeverityFor maps an exception kind to its reporting severity.
func SeverityFor(kind ExceptionKind) Severity {
	switch kind {
	case ExcStockOut:
		return SeverityCritical
	case ExcMalformedInput, ExcUnmappedSKU, ExcUnroutableOrder:
		return SeverityHigh
	case ExcMissingRule, ExcDemandAnomaly:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Exception is a per-SKU or per-file diagnostic record for one business date.
type Exception struct {
	Date     string        `json:"date"`
	SKU      string        `json:"sku,omitempty"`
	Kind     ExceptionKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Detail   string        `json:"detail"`
}

// NewException builds an exception with the severity derived from its kind.
func NewException(date, sku string, kind ExceptionKind, detail string) Exception {
	return Exception{
		Date:     date,
		SKU:      sku,
		Kind:     kind,
		Severity: SeverityFor(kind),
		Detail:   detail,
	}
}
