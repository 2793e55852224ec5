// internal/domain/models.go
package domain

// LineItem is a single SKU position inside a POS order.
type LineItem struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderEvent is one point-of-sale order as ingested from the raw partition.
// Immutable once written.
type OrderEvent struct {
	OrderID   string     `json:"order_id"`
	POSID     string     `json:"pos_id"`
	Timestamp string     `json:"timestamp"`
	Items     []LineItem `json:"items"`
}

// StockSnapshot is one warehouse/SKU row from a raw stock CSV.
type StockSnapshot struct {
	WarehouseID    string
	SKU            string
	QuantityOnHand int
	SnapshotDate   string
}

// MasterRecord is one row of the joined master-data query:
// products LEFT JOIN replenishment_rules LEFT JOIN suppliers.
// HasRule is false when no replenishment rule exists for the SKU; the
// calculator then falls back to safety stock 0 and MOQ 1.
type MasterRecord struct {
	SKU              string `db:"sku"`
	ProductName      string `db:"product_name"`
	Category         string `db:"category"`
	CaseSize         int    `db:"case_size"`
	HasRule          bool   `db:"has_rule"`
	MOQ              int    `db:"moq"`
	SafetyStockLevel int    `db:"safety_stock_level"`
	SupplierID       string `db:"supplier_id"`
	SupplierName     string `db:"supplier_name"`
	LeadTimeDays     int    `db:"lead_time_days"`
}

// NetDemandLine is the per-SKU replenishment decision for one business date.
// Lines with NetDemand == 0 are kept for audit but never exported to a
// supplier order, and their OrderQuantity is 0 (the MOQ floor only applies
// when something actually needs ordering).
type NetDemandLine struct {
	Date             string `json:"date"`
	SKU              string `json:"sku"`
	ProductName      string `json:"product_name"`
	CaseSize         int    `json:"case_size"`
	TotalDemand      int    `json:"total_demand"`
	TotalStock       int    `json:"total_stock"`
	SafetyStockLevel int    `json:"safety_stock_level"`
	NetDemand        int    `json:"net_demand"`
	CasesNeeded      int    `json:"cases_needed"`
	OrderQuantity    int    `json:"order_quantity"`
	MOQ              int    `json:"moq"`
	SupplierID       string `json:"supplier_id"`
}

// OrderLine is one numbered position inside a supplier order document.
type OrderLine struct {
	LineNumber    int    `json:"line_number"`
	SKU           string `json:"sku"`
	ProductName   string `json:"product_name"`
	OrderQuantity int    `json:"quantity_ordered"`
	Cases         int    `json:"cases"`
	CaseSize      int    `json:"case_size"`
	NetDemand     int    `json:"net_demand"`
	TotalStock    int    `json:"available_stock"`
	TotalDemand   int    `json:"total_demand"`
}

// OrderSummary totals one supplier order document.
type OrderSummary struct {
	TotalLineItems int `json:"total_line_items"`
	TotalUnits     int `json:"total_units"`
	TotalCases     int `json:"total_cases"`
}

// SupplierOrder is one purchase-order document, one per supplier per date.
type SupplierOrder struct {
	OrderID               string       `json:"order_id"`
	SupplierID            string       `json:"supplier_id"`
	SupplierName          string       `json:"supplier_name"`
	OrderDate             string       `json:"order_date"`
	RequestedDeliveryDate string       `json:"requested_delivery_date"`
	Status                string       `json:"status"`
	Priority              string       `json:"priority"`
	Lines                 []OrderLine  `json:"lines"`
	Summary               OrderSummary `json:"summary"`
}

// DemandAggregate maps sku -> total demand for one business date.
type DemandAggregate map[string]int

// StockAggregate maps sku -> total on-hand quantity across warehouses.
type StockAggregate map[string]int
