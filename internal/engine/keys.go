package engine

// Partition layout inside the event store. Raw inputs arrive under the
// date-partitioned orders/ and stock/ prefixes, archival relocates them under
// processed/ with identical relative paths, and all run outputs land under
// output/{date}/.

// OrdersPrefix returns the raw order partition for a business date.
func OrdersPrefix(date string) string {
	return "orders/" + date + "/"
}

// StockPrefix returns the raw stock partition for a business date.
func StockPrefix(date string) string {
	return "stock/" + date + "/"
}

// OutputPrefix returns the output partition for a business date.
func OutputPrefix(date string) string {
	return "output/" + date + "/"
}

// ProcessedKey returns the archived location of a raw object key.
func ProcessedKey(rawKey string) string {
	return "processed/" + rawKey
}

// ProcessedOrdersPrefix returns the archived order partition for a date.
func ProcessedOrdersPrefix(date string) string {
	return ProcessedKey(OrdersPrefix(date))
}

// ProcessedStockPrefix returns the archived stock partition for a date.
func ProcessedStockPrefix(date string) string {
	return ProcessedKey(StockPrefix(date))
}
