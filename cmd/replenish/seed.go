package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/retailops/replenish/pkg/logger"
)

// newSeedCommand loads master data CSVs (suppliers, products, replenishment
// rules) into Postgres. Upserts keyed on the natural ids keep reseeding
// idempotent.
func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load master data CSVs into the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Usage:    "Database connection string",
				Required: true,
				EnvVars:  []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory containing master data CSVs",
				Value:   "./data/seeds/master_data",
				EnvVars: []string{"SEED_DATA_DIR"},
			},
		},
		Action: seedMasterData,
	}
}

func seedMasterData(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	dataDir := c.String("data-dir")

	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	logger.Log.Info().Str("data_dir", dataDir).Msg("seeding master data")

	seeds := []struct {
		table    string
		file     string
		columns  []string
		conflict string
	}{
		{
			table:    "suppliers",
			file:     "suppliers.csv",
			columns:  []string{"supplier_id", "supplier_name", "lead_time_days"},
			conflict: "supplier_id",
		},
		{
			table:    "products",
			file:     "products.csv",
			columns:  []string{"sku", "product_name", "category", "case_size"},
			conflict: "sku",
		},
		{
			table:    "replenishment_rules",
			file:     "replenishment_rules.csv",
			columns:  []string{"sku", "moq", "safety_stock_level", "supplier_id"},
			conflict: "sku",
		},
	}

	for _, seed := range seeds {
		path := filepath.Join(dataDir, seed.file)
		if err := seedTable(c.Context, tx, seed.table, seed.columns, seed.conflict, path); err != nil {
			return fmt.Errorf("failed to seed %s: %w", seed.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Log.Info().Msg("master data seeding complete")
	return nil
}

// seedTable upserts every CSV row into the table, mapping columns by header
// name so column order in the file does not matter.
func seedTable(ctx context.Context, tx *sql.Tx, table string, columns []string, conflict, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	indexes := make([]int, len(columns))
	for i, col := range columns {
		indexes[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				indexes[i] = j
				break
			}
		}
		if indexes[i] < 0 {
			return fmt.Errorf("column %q missing from %s", col, path)
		}
	}

	query := buildUpsertQuery(table, columns, conflict)

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, idx := range indexes {
			if idx >= len(record) {
				return fmt.Errorf("row %d of %s has too few fields", rows+2, path)
			}
			args[i] = strings.TrimSpace(record[idx])
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert row: %w", err)
		}
		rows++
	}

	logger.Log.Info().Str("table", table).Int("rows", rows).Msg("seeded table")
	return nil
}

func buildUpsertQuery(table string, columns []string, conflict string) string {
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != conflict {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		conflict,
		strings.Join(updates, ", "),
	)
}
