package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/retailops/replenish/internal/domain"
)

const defaultLeadTimeDays = 2

// ExportSupplierOrders groups net-demand lines with positive net demand by
// supplier and builds one purchase-order document per non-empty group,
// ordered by supplier id. Lines whose SKU resolves to no supplier (a
// default-ruled SKU, or a rule pointing at an unknown supplier) become
// UNROUTABLE_ORDER exceptions instead of being dropped or misassigned.
func ExportSupplierOrders(date string, lines []domain.NetDemandLine, master map[string]domain.MasterRecord) ([]domain.SupplierOrder, []domain.Exception) {
	bySupplier := make(map[string][]domain.NetDemandLine)
	exceptions := make([]domain.Exception, 0)

	for _, line := range lines {
		if line.NetDemand <= 0 {
			continue
		}

		rec := master[line.SKU]
		if line.SupplierID == "" || rec.SupplierName == "" {
			exceptions = append(exceptions, domain.NewException(date, line.SKU, domain.ExcUnroutableOrder,
				fmt.Sprintf("order of %d units has no resolvable supplier", line.OrderQuantity)))
			continue
		}

		bySupplier[line.SupplierID] = append(bySupplier[line.SupplierID], line)
	}

	supplierIDs := make([]string, 0, len(bySupplier))
	for id := range bySupplier {
		supplierIDs = append(supplierIDs, id)
	}
	sort.Strings(supplierIDs)

	orders := make([]domain.SupplierOrder, 0, len(supplierIDs))
	for _, supplierID := range supplierIDs {
		group := bySupplier[supplierID]
		sort.Slice(group, func(i, j int) bool { return group[i].SKU < group[j].SKU })

		var rec domain.MasterRecord
		if len(group) > 0 {
			rec = master[group[0].SKU]
		}

		order := domain.SupplierOrder{
			OrderID:               orderID(supplierID, date),
			SupplierID:            supplierID,
			SupplierName:          rec.SupplierName,
			OrderDate:             date,
			RequestedDeliveryDate: deliveryDate(date, rec.LeadTimeDays),
			Status:                "PENDING",
			Priority:              "NORMAL",
			Lines:                 make([]domain.OrderLine, 0, len(group)),
		}

		for i, line := range group {
			order.Lines = append(order.Lines, domain.OrderLine{
				LineNumber:    i + 1,
				SKU:           line.SKU,
				ProductName:   line.ProductName,
				OrderQuantity: line.OrderQuantity,
				Cases:         line.CasesNeeded,
				CaseSize:      line.CaseSize,
				NetDemand:     line.NetDemand,
				TotalStock:    line.TotalStock,
				TotalDemand:   line.TotalDemand,
			})
			order.Summary.TotalUnits += line.OrderQuantity
			order.Summary.TotalCases += line.CasesNeeded
		}
		order.Summary.TotalLineItems = len(order.Lines)

		switch {
		case order.Summary.TotalUnits > 5000:
			order.Priority = "HIGH"
		case order.Summary.TotalUnits > 2000:
			order.Priority = "MEDIUM"
		}

		orders = append(orders, order)
	}

	return orders, exceptions
}

// orderID builds a stable order identifier from the date and the supplier
// id's trailing digits, e.g. ORD-20260103-001-001.
func orderID(supplierID, date string) string {
	suffix := supplierID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("ORD-%s-%s-001", strings.ReplaceAll(date, "-", ""), suffix)
}

// deliveryDate adds the supplier lead time to the order date, falling back
// to two days when the supplier carries none.
func deliveryDate(date string, leadTimeDays int) string {
	if leadTimeDays <= 0 {
		leadTimeDays = defaultLeadTimeDays
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, leadTimeDays).Format("2006-01-02")
}
