package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/retailops/replenish/internal/batch"
	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/domain"
	"github.com/retailops/replenish/internal/engine"
	"github.com/retailops/replenish/pkg/logger"
)

// newGenCommand builds the sample-data generator. It writes raw order and
// stock partitions straight into the configured event store so a fresh
// checkout can exercise the full batch without real POS feeds.
func newGenCommand() *cli.Command {
	return &cli.Command{
		Name:  "gen",
		Usage: "Generate sample raw inputs for a business date",
		Flags: []cli.Flag{
			newDateFlag(),
			&cli.IntFlag{Name: "pos", Usage: "Number of POS terminals", Value: 3},
			&cli.IntFlag{Name: "warehouses", Usage: "Number of warehouses", Value: 2},
			&cli.IntFlag{Name: "orders-per-pos", Usage: "Orders per POS file", Value: 20},
			&cli.IntFlag{Name: "skus", Usage: "Size of the SKU universe", Value: 50},
			&cli.Int64Flag{Name: "rand-seed", Usage: "Seed for reproducible data", Value: 42},
		},
		Action: generateSampleData,
	}
}

func generateSampleData(c *cli.Context) error {
	cfg := config.Load()
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	date := c.String("date")
	if err := batch.ValidateDate(date); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(c.Int64("rand-seed")))
	skus := makeSKUs(c.Int("skus"))

	for pos := 1; pos <= c.Int("pos"); pos++ {
		events := makeOrders(rng, date, pos, c.Int("orders-per-pos"), skus)
		payload, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}

		key := engine.OrdersPrefix(date) + fmt.Sprintf("pos_%d_orders.json", pos)
		if err := store.PutObject(c.Context, key, payload); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		logger.Log.Info().Str("key", key).Int("orders", len(events)).Msg("wrote order file")
	}

	for wh := 1; wh <= c.Int("warehouses"); wh++ {
		key := engine.StockPrefix(date) + fmt.Sprintf("wh_%d_stock.csv", wh)
		if err := store.PutObject(c.Context, key, makeStockCSV(rng, date, wh, skus)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		logger.Log.Info().Str("key", key).Int("skus", len(skus)).Msg("wrote stock file")
	}

	return nil
}

func makeSKUs(n int) []string {
	skus := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		skus = append(skus, fmt.Sprintf("SKU-%04d", i))
	}
	return skus
}

func makeOrders(rng *rand.Rand, date string, pos, count int, skus []string) []domain.OrderEvent {
	events := make([]domain.OrderEvent, 0, count)
	for i := 1; i <= count; i++ {
		itemCount := 1 + rng.Intn(4)
		items := make([]domain.LineItem, 0, itemCount)
		for j := 0; j < itemCount; j++ {
			items = append(items, domain.LineItem{
				SKU:       skus[rng.Intn(len(skus))],
				Quantity:  1 + rng.Intn(10),
				UnitPrice: float64(100+rng.Intn(9900)) / 100,
			})
		}

		events = append(events, domain.OrderEvent{
			OrderID:   fmt.Sprintf("POS%d-%s-%04d", pos, date, i),
			POSID:     fmt.Sprintf("pos_%d", pos),
			Timestamp: fmt.Sprintf("%sT%02d:%02d:00Z", date, 8+rng.Intn(12), rng.Intn(60)),
			Items:     items,
		})
	}
	return events
}

func makeStockCSV(rng *rand.Rand, date string, wh int, skus []string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"warehouse_id", "sku", "quantity", "stock_date"})
	for _, sku := range skus {
		// A slice of the universe is left out of stock to trigger the
		// stock-out detector on realistic data.
		qty := 0
		if rng.Float64() > 0.1 {
			qty = rng.Intn(200)
		}
		w.Write([]string{fmt.Sprintf("wh_%d", wh), sku, strconv.Itoa(qty), date})
	}
	w.Flush()

	return buf.Bytes()
}
