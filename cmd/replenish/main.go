package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/retailops/replenish/internal/batch"
	"github.com/retailops/replenish/internal/cache"
	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/masterdata"
	"github.com/retailops/replenish/internal/storage"
	"github.com/retailops/replenish/pkg/logger"
)

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "date",
		Usage:   "Business date (YYYY-MM-DD)",
		Value:   time.Now().Format("2006-01-02"),
		EnvVars: []string{"BATCH_DATE"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "replenish",
		Usage: "Daily supplier replenishment batch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the replenishment batch for one business date",
				Flags:  []cli.Flag{newDateFlag()},
				Action: runBatch,
			},
			{
				Name:   "status",
				Usage:  "Show the derived batch state for a business date",
				Flags:  []cli.Flag{newDateFlag()},
				Action: showStatus,
			},
			{
				Name:   "reprocess",
				Usage:  "Restore archived inputs for a date and run the batch again",
				Flags:  []cli.Flag{newDateFlag()},
				Action: reprocessBatch,
			},
			{
				Name:  "replay",
				Usage: "Run the batch for a range of past dates, oldest first",
				Flags: []cli.Flag{
					newDateFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Number of days ending at --date",
						Value: 7,
					},
				},
				Action: replayBatches,
			},
			newGenCommand(),
			newSeedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

// newStore builds the configured event store backend.
func newStore(cfg *config.Config) (storage.EventStore, error) {
	switch cfg.Store.Backend {
	case "fs", "":
		return storage.NewFSStore(cfg.Store.RootDir)
	case "s3":
		return storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Store.Endpoint,
			AccessKey: cfg.Store.AccessKey,
			SecretKey: cfg.Store.SecretKey,
			Bucket:    cfg.Store.Bucket,
			Region:    cfg.Store.Region,
			UseSSL:    cfg.Store.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newMasterSource wires the master-data repository behind the cache decorator.
func newMasterSource(cfg *config.Config) (masterdata.Source, error) {
	db, err := masterdata.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to master database: %w", err)
	}

	masterCache, err := cache.NewMasterDataCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, running uncached")
		masterCache = cache.NewNoopMasterDataCache()
	}

	return cache.NewCachedSource(masterdata.NewRepository(db), masterCache), nil
}

func newController() (*batch.Controller, error) {
	cfg := config.Load()

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	master, err := newMasterSource(cfg)
	if err != nil {
		return nil, err
	}

	return batch.NewController(store, master, cfg.Pipeline), nil
}

func runBatch(c *cli.Context) error {
	controller, err := newController()
	if err != nil {
		return err
	}

	result, err := controller.Run(c.Context, c.String("date"))
	if err != nil && !errors.Is(err, batch.ErrArchivalPartial) {
		return err
	}
	if err != nil {
		logger.Log.Warn().Err(err).Msg("run finished with outputs intact, archival must be retried")
	}

	return printJSON(result)
}

func showStatus(c *cli.Context) error {
	controller, err := newController()
	if err != nil {
		return err
	}

	run, err := controller.Status(c.Context, c.String("date"))
	if err != nil {
		return err
	}

	return printJSON(run)
}

func reprocessBatch(c *cli.Context) error {
	controller, err := newController()
	if err != nil {
		return err
	}

	result, err := controller.Reprocess(c.Context, c.String("date"))
	if err != nil {
		return err
	}

	return printJSON(result)
}

// replayBatches re-runs past dates oldest first so supplier order ids stay in
// calendar order. Dates without input are skipped, any other failure stops
// the replay.
func replayBatches(c *cli.Context) error {
	end, err := time.Parse("2006-01-02", c.String("date"))
	if err != nil {
		return fmt.Errorf("%w: %q", batch.ErrInvalidDate, c.String("date"))
	}
	days := c.Int("days")
	if days < 1 {
		return fmt.Errorf("days must be positive, got %d", days)
	}

	controller, err := newController()
	if err != nil {
		return err
	}

	for i := days - 1; i >= 0; i-- {
		date := end.AddDate(0, 0, -i).Format("2006-01-02")

		result, err := controller.Run(c.Context, date)
		switch {
		case errors.Is(err, batch.ErrNoInput):
			logger.Log.Info().Str("date", date).Msg("no inputs, skipping")
			continue
		case errors.Is(err, batch.ErrArchivalPartial):
			logger.Log.Warn().Str("date", date).Err(err).Msg("archival incomplete, continuing replay")
		case err != nil:
			return fmt.Errorf("replay stopped at %s: %w", date, err)
		}

		logger.Log.Info().
			Str("date", date).
			Str("status", string(result.Status)).
			Int("orders", result.OrdersExported).
			Int("exceptions", result.Exceptions).
			Msg("replayed date")
	}

	return nil
}

func printJSON(v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}
