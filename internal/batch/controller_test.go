package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/engine"
	"github.com/retailops/replenish/internal/storage"
)

type fakeSource struct {
	records []domain.MasterRecord
	err     error
}

func (s *fakeSource) FetchMasterData(ctx context.Context) ([]domain.MasterRecord, error) {
	return s.records, s.err
}

func testMaster() *fakeSource {
	return &fakeSource{records: []domain.MasterRecord{
		{
			SKU: "SKU-0001", ProductName: "Cola 330ml", CaseSize: 12,
			HasRule: true, MOQ: 24, SafetyStockLevel: 10,
			SupplierID: "SUP-001", SupplierName: "Acme Beverages", LeadTimeDays: 3,
		},
		{
			SKU: "SKU-0002", ProductName: "Chips 150g", CaseSize: 20,
			HasRule: true, MOQ: 40, SafetyStockLevel: 5,
			SupplierID: "SUP-002", SupplierName: "Snack Co", LeadTimeDays: 2,
		},
	}}
}

func testController(store storage.EventStore, master *fakeSource) *Controller {
	return NewController(store, master, config.PipelineConfig{WorkerCount: 2, AnomalySigma: 3.0})
}

func seedRawInputs(t *testing.T, store storage.EventStore, date string) {
	t.Helper()
	ctx := context.Background()

	events := []domain.OrderEvent{
		{OrderID: "A-1", POSID: "pos_1", Items: []domain.LineItem{
			{SKU: "SKU-0001", Quantity: 50},
			{SKU: "SKU-0002", Quantity: 30},
		}},
	}
	payload, err := json.Marshal(events)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.PutObject(ctx, engine.OrdersPrefix(date)+"pos_1_orders.json", payload); err != nil {
		t.Fatal(err)
	}

	csv := "warehouse_id,sku,quantity,stock_date\n" +
		fmt.Sprintf("wh_1,SKU-0001,20,%s\n", date) +
		fmt.Sprintf("wh_1,SKU-0002,100,%s\n", date)
	if err := store.PutObject(ctx, engine.StockPrefix(date)+"wh_1_stock.csv", []byte(csv)); err != nil {
		t.Fatal(err)
	}
}

func TestRunFullLifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	status, err := controller.Status(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != domain.StatusRawPresent {
		t.Fatalf("pre-run status = %s, want RAW_PRESENT", status.Status)
	}

	result, err := controller.Run(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.StatusArchived {
		t.Errorf("run status = %s, want ARCHIVED", result.Status)
	}
	if result.SKUsAnalyzed != 2 {
		t.Errorf("skus analyzed = %d, want 2", result.SKUsAnalyzed)
	}
	if result.FilesArchived != 2 {
		t.Errorf("files archived = %d, want 2", result.FilesArchived)
	}

	// All five output document types must exist.
	for _, key := range []string{
		replenishmentKey(date),
		exceptionsJSONKey(date),
		exceptionsTextKey(date),
		runSummaryKey(date),
		supplierOrderKey(date, "SUP-001"),
	} {
		if _, err := store.GetObject(ctx, key); err != nil {
			t.Errorf("missing output %s: %v", key, err)
		}
	}

	// Raw partitions must be empty, archived copies present.
	raw, _ := store.ListObjects(ctx, engine.OrdersPrefix(date))
	if len(raw) != 0 {
		t.Errorf("raw orders remain after archival: %v", raw)
	}
	archived, _ := store.ListObjects(ctx, engine.ProcessedOrdersPrefix(date))
	if len(archived) != 1 {
		t.Errorf("archived orders = %d, want 1", len(archived))
	}

	status, err = controller.Status(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != domain.StatusArchived {
		t.Errorf("post-run status = %s, want ARCHIVED", status.Status)
	}
}

func TestRunComputesExpectedOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	result, err := controller.Run(ctx, date)
	if err != nil {
		t.Fatal(err)
	}

	// SKU-0001: 50 demand + 10 safety - 20 stock = 40 net, 4 cases of 12 = 48.
	// SKU-0002: 30 demand + 5 safety - 100 stock = negative, no order.
	if result.OrdersExported != 1 {
		t.Fatalf("orders exported = %d, want 1", result.OrdersExported)
	}
	order := result.Orders[0]
	if order.SupplierID != "SUP-001" {
		t.Errorf("order supplier = %s", order.SupplierID)
	}
	if order.Summary.TotalUnits != 48 {
		t.Errorf("ordered units = %d, want 48", order.Summary.TotalUnits)
	}
}

func TestRunNoInputFailsCleanly(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	_, err := controller.Run(ctx, date)
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("err = %v, want ErrNoInput", err)
	}

	// A failed run must leave the store untouched: no outputs, no archival.
	outputs, _ := store.ListObjects(ctx, engine.OutputPrefix(date))
	if len(outputs) != 0 {
		t.Errorf("failed run wrote outputs: %v", outputs)
	}

	status, err := controller.Status(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", status.Status)
	}
}

func TestRunNoReadableInputFails(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	if err := store.PutObject(ctx, engine.OrdersPrefix(date)+"pos_1_orders.json", []byte("{broken")); err != nil {
		t.Fatal(err)
	}

	_, err := controller.Run(ctx, date)
	if !errors.Is(err, ErrNoReadableInput) {
		t.Fatalf("err = %v, want ErrNoReadableInput", err)
	}
}

func TestRunMasterSourceDown(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, &fakeSource{err: errors.New("connection refused")})
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	if _, err := controller.Run(ctx, date); err == nil {
		t.Fatal("expected error when master source is unreachable")
	}

	outputs, _ := store.ListObjects(ctx, engine.OutputPrefix(date))
	if len(outputs) != 0 {
		t.Errorf("run without master data wrote outputs: %v", outputs)
	}
	raw, _ := store.ListObjects(ctx, engine.OrdersPrefix(date))
	if len(raw) != 1 {
		t.Errorf("raw inputs disturbed by failed run: %v", raw)
	}
}

func TestRunInvalidDate(t *testing.T) {
	controller := testController(storage.NewMemoryStore(), testMaster())

	for _, date := range []string{"", "20260103", "2026-13-40", "yesterday"} {
		if _, err := controller.Run(context.Background(), date); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("date %q: err = %v, want ErrInvalidDate", date, err)
		}
	}
}

func TestArchiveRetryAfterPartial(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	// Simulate a partial archival by moving one file manually.
	if err := store.MoveObject(ctx,
		engine.OrdersPrefix(date)+"pos_1_orders.json",
		engine.ProcessedOrdersPrefix(date)+"pos_1_orders.json"); err != nil {
		t.Fatal(err)
	}

	moved, err := controller.Archive(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if moved != 1 {
		t.Errorf("retry moved %d files, want just the leftover stock file", moved)
	}

	raw, _ := store.ListObjects(ctx, engine.StockPrefix(date))
	if len(raw) != 0 {
		t.Errorf("stock partition not emptied: %v", raw)
	}
}

func TestArchiveTwiceIsNoOp(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	if _, err := controller.Run(ctx, date); err != nil {
		t.Fatal(err)
	}

	moved, err := controller.Archive(ctx, date)
	if err != nil {
		t.Fatalf("second archival errored: %v", err)
	}
	if moved != 0 {
		t.Errorf("second archival moved %d files, want 0", moved)
	}

	archived, _ := store.ListObjects(ctx, engine.ProcessedOrdersPrefix(date))
	if len(archived) != 1 {
		t.Errorf("archived orders = %d, want exactly 1 (no duplicates)", len(archived))
	}
}

func TestReprocessReproducesOutputs(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)

	if _, err := controller.Run(ctx, date); err != nil {
		t.Fatal(err)
	}
	firstCSV, err := store.GetObject(ctx, replenishmentKey(date))
	if err != nil {
		t.Fatal(err)
	}

	result, err := controller.Reprocess(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.StatusArchived {
		t.Errorf("reprocess status = %s, want ARCHIVED", result.Status)
	}

	secondCSV, err := store.GetObject(ctx, replenishmentKey(date))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstCSV) != string(secondCSV) {
		t.Error("reprocessing an unchanged input set changed the replenishment output")
	}

	raw, _ := store.ListObjects(ctx, engine.OrdersPrefix(date))
	if len(raw) != 0 {
		t.Errorf("reprocess left raw files behind: %v", raw)
	}
}

func TestStatusOutputsWrittenWhenRawRemains(t *testing.T) {
	store := storage.NewMemoryStore()
	controller := testController(store, testMaster())
	ctx := context.Background()
	date := "2026-01-03"

	seedRawInputs(t, store, date)
	if err := store.PutObject(ctx, replenishmentKey(date), []byte("sku\n")); err != nil {
		t.Fatal(err)
	}

	status, err := controller.Status(ctx, date)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != domain.StatusOutputsWritten {
		t.Errorf("status = %s, want OUTPUTS_WRITTEN for outputs plus leftover raw", status.Status)
	}
}
