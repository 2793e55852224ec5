package engine

import (
	"context"
	"testing"

	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/storage"
)

func putCSV(t *testing.T, store storage.EventStore, key, content string) {
	t.Helper()
	if err := store.PutObject(context.Background(), key, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func TestAggregateStockSumsAcrossWarehouses(t *testing.T) {
	store := storage.NewMemoryStore()
	date := "2026-01-03"

	putCSV(t, store, StockPrefix(date)+"wh_1_stock.csv",
		"warehouse_id,sku,quantity,stock_date\nwh_1,SKU-0001,40,2026-01-03\nwh_1,SKU-0002,10,2026-01-03\n")
	putCSV(t, store, StockPrefix(date)+"wh_2_stock.csv",
		"warehouse_id,sku,quantity,stock_date\nwh_2,SKU-0001,25,2026-01-03\n")

	stock, stats, excs, err := AggregateStock(context.Background(), store, date, Options{WorkerCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(excs) != 0 {
		t.Fatalf("unexpected exceptions: %+v", excs)
	}
	if stats.FilesRead != 2 {
		t.Fatalf("files read = %d, want 2", stats.FilesRead)
	}
	if stock["SKU-0001"] != 65 {
		t.Errorf("SKU-0001 stock = %d, want 65", stock["SKU-0001"])
	}
	if stock["SKU-0002"] != 10 {
		t.Errorf("SKU-0002 stock = %d, want 10", stock["SKU-0002"])
	}
}

func TestAggregateStockIsolatesBadRows(t *testing.T) {
	store := storage.NewMemoryStore()
	date := "2026-01-03"

	// One negative quantity, one non-numeric, one empty SKU; the good rows
	// around them must still count.
	putCSV(t, store, StockPrefix(date)+"wh_1_stock.csv",
		"warehouse_id,sku,quantity,stock_date\n"+
			"wh_1,SKU-0001,40,2026-01-03\n"+
			"wh_1,SKU-0002,-5,2026-01-03\n"+
			"wh_1,SKU-0003,abc,2026-01-03\n"+
			"wh_1,,7,2026-01-03\n"+
			"wh_1,SKU-0004,12,2026-01-03\n")

	stock, stats, excs, err := AggregateStock(context.Background(), store, date, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesRead != 1 || stats.FilesSkipped != 0 {
		t.Fatalf("stats = %+v, want the file read despite bad rows", stats)
	}
	if stock["SKU-0001"] != 40 || stock["SKU-0004"] != 12 {
		t.Errorf("good rows lost: %v", stock)
	}
	if _, ok := stock["SKU-0002"]; ok {
		t.Error("negative quantity row must be dropped")
	}
	if len(excs) != 3 {
		t.Fatalf("expected 3 row exceptions, got %d: %+v", len(excs), excs)
	}
	for _, exc := range excs {
		if exc.Kind != domain.ExcMalformedInput {
			t.Errorf("exception kind = %s, want MALFORMED_INPUT", exc.Kind)
		}
	}
}

func TestAggregateStockSkipsFileWithoutColumns(t *testing.T) {
	store := storage.NewMemoryStore()
	date := "2026-01-03"

	putCSV(t, store, StockPrefix(date)+"wh_1_stock.csv", "a,b,c\n1,2,3\n")
	putCSV(t, store, StockPrefix(date)+"wh_2_stock.csv",
		"warehouse_id,sku,quantity,stock_date\nwh_2,SKU-0001,9,2026-01-03\n")

	stock, stats, excs, err := AggregateStock(context.Background(), store, date, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesRead != 1 || stats.FilesSkipped != 1 {
		t.Fatalf("stats = %+v, want 1 read / 1 skipped", stats)
	}
	if stock["SKU-0001"] != 9 {
		t.Errorf("SKU-0001 stock = %d, want 9", stock["SKU-0001"])
	}
	if len(excs) != 1 {
		t.Fatalf("expected one exception for the skipped file, got %+v", excs)
	}
}

func TestAggregateStockHeaderCaseInsensitive(t *testing.T) {
	store := storage.NewMemoryStore()
	date := "2026-01-03"

	putCSV(t, store, StockPrefix(date)+"wh_1_stock.csv",
		"Warehouse_ID, SKU, Quantity, Stock_Date\nwh_1,SKU-0001,33,2026-01-03\n")

	stock, _, excs, err := AggregateStock(context.Background(), store, date, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(excs) != 0 {
		t.Fatalf("unexpected exceptions: %+v", excs)
	}
	if stock["SKU-0001"] != 33 {
		t.Errorf("SKU-0001 stock = %d, want 33", stock["SKU-0001"])
	}
}
