package engine

import (
	"fmt"
	"sort"

	"github.com/retailops/replenish/internal/domain"
)

// ComputeNetDemand joins the demand and stock aggregates against master data
// and produces one line per SKU seen in demand, stock, or a replenishment
// rule, ordered by SKU ascending.
//
// Business rules, all integer arithmetic:
//
//	net_demand     = max(total_demand + safety_stock − total_stock, 0)
//	cases_needed   = ceil(net_demand / case_size)
//	order_quantity = max(cases_needed × case_size, moq), or 0 when net_demand is 0
//
// The MOQ can push order_quantity above computed need; that is supplier
// policy, not a rounding bug. A SKU with demand or stock but no product
// record cannot be priced into cases and is excluded with an UNMAPPED_SKU
// exception. A product without a rule runs with safety stock 0 and MOQ 1 and
// is flagged MISSING_RULE but still included.
func ComputeNetDemand(date string, demand domain.DemandAggregate, stock domain.StockAggregate, master map[string]domain.MasterRecord) ([]domain.NetDemandLine, []domain.Exception) {
	skuSet := make(map[string]struct{}, len(demand)+len(stock))
	for sku := range demand {
		skuSet[sku] = struct{}{}
	}
	for sku := range stock {
		skuSet[sku] = struct{}{}
	}
	for sku, rec := range master {
		if rec.HasRule {
			skuSet[sku] = struct{}{}
		}
	}

	skus := make([]string, 0, len(skuSet))
	for sku := range skuSet {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	lines := make([]domain.NetDemandLine, 0, len(skus))
	exceptions := make([]domain.Exception, 0)

	for _, sku := range skus {
		rec, ok := master[sku]
		if !ok {
			exceptions = append(exceptions, domain.NewException(date, sku, domain.ExcUnmappedSKU,
				fmt.Sprintf("demand %d / stock %d but no product record", demand[sku], stock[sku])))
			continue
		}

		safetyStock := rec.SafetyStockLevel
		moq := rec.MOQ
		if !rec.HasRule {
			safetyStock = 0
			moq = 1
			exceptions = append(exceptions, domain.NewException(date, sku, domain.ExcMissingRule,
				"no replenishment rule, defaulting safety stock 0 and MOQ 1"))
		}

		caseSize := rec.CaseSize
		if caseSize < 1 {
			caseSize = 1
		}

		netDemand := demand[sku] + safetyStock - stock[sku]
		if netDemand < 0 {
			netDemand = 0
		}

		casesNeeded := 0
		orderQty := 0
		if netDemand > 0 {
			casesNeeded = (netDemand + caseSize - 1) / caseSize
			orderQty = casesNeeded * caseSize
			if orderQty < moq {
				orderQty = moq
			}
		}

		lines = append(lines, domain.NetDemandLine{
			Date:             date,
			SKU:              sku,
			ProductName:      rec.ProductName,
			CaseSize:         caseSize,
			TotalDemand:      demand[sku],
			TotalStock:       stock[sku],
			SafetyStockLevel: safetyStock,
			NetDemand:        netDemand,
			CasesNeeded:      casesNeeded,
			OrderQuantity:    orderQty,
			MOQ:              moq,
			SupplierID:       rec.SupplierID,
		})
	}

	return lines, exceptions
}
