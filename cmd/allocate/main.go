package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/dataset"
	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/internal/engine"
	"github.com/oasis-retail/allocator/internal/export"
	"github.com/oasis-retail/allocator/pkg/logger"
)

func budgetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "budget",
			Usage:    "Total replenishment budget for the store",
			Required: true,
			EnvVars:  []string{"ALLOCATOR_BUDGET"},
		},
		&cli.StringFlag{
			Name:    "cash",
			Usage:   "Cash available, defaults to the full budget",
			EnvVars: []string{"ALLOCATOR_CASH"},
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory for allocation exports",
			EnvVars: []string{"APP_OUTPUT_DIR"},
		},
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug().Msg("no .env file found")
	}

	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	app := &cli.App{
		Name:  "allocate",
		Usage: "Tiered inventory allocation for store replenishment",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Allocate a single store snapshot",
				ArgsUsage: "<snapshot.csv|snapshot.json>",
				Flags:     budgetFlags(),
				Action:    runSingle,
			},
			{
				Name:      "batch",
				Usage:     "Allocate every snapshot in a directory concurrently",
				ArgsUsage: "<snapshot-dir>",
				Flags:     budgetFlags(),
				Action:    runBatch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("allocation failed")
	}
}

func parseBudget(c *cli.Context) (domain.BudgetContext, error) {
	total, err := decimal.NewFromString(c.String("budget"))
	if err != nil {
		return domain.BudgetContext{}, fmt.Errorf("invalid budget %q: %w", c.String("budget"), err)
	}
	cash := total
	if raw := c.String("cash"); raw != "" {
		cash, err = decimal.NewFromString(raw)
		if err != nil {
			return domain.BudgetContext{}, fmt.Errorf("invalid cash %q: %w", raw, err)
		}
	}
	return domain.BudgetContext{TotalBudget: total, CashAvailable: cash}, nil
}

func outputDir(c *cli.Context) string {
	if dir := c.String("output-dir"); dir != "" {
		return dir
	}
	return config.Load().App.OutputDir
}

func runSingle(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one snapshot file", 2)
	}
	budget, err := parseBudget(c)
	if err != nil {
		return err
	}
	return allocateFile(c.Context, c.Args().First(), budget, outputDir(c))
}

func runBatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one snapshot directory", 2)
	}
	budget, err := parseBudget(c)
	if err != nil {
		return err
	}
	dir := c.Args().First()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading snapshot dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".json":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no snapshot files in %s", dir)
	}

	// Stores are independent, so runs fan out across a bounded worker pool.
	workers := config.Load().App.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(workers)
	out := outputDir(c)
	for _, path := range files {
		path := path
		g.Go(func() error {
			return allocateFile(ctx, path, budget, out)
		})
	}
	return g.Wait()
}

func allocateFile(ctx context.Context, path string, budget domain.BudgetContext, outDir string) error {
	snap, err := dataset.Load(path)
	if err != nil {
		return err
	}

	eng := engine.New(config.Load().Engine)
	result, err := eng.Allocate(ctx, snap.SKUs, budget)
	if err != nil {
		return fmt.Errorf("allocating %s: %w", filepath.Base(path), err)
	}
	result.Defects = append(snap.Defects, result.Defects...)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := export.WriteAllocationsCSV(filepath.Join(outDir, base+"_allocations.csv"), result); err != nil {
		return err
	}
	if err := export.WriteDefectsCSV(filepath.Join(outDir, base+"_defects.csv"), result.Defects); err != nil {
		return err
	}
	if err := export.WriteSummaryJSON(filepath.Join(outDir, base+"_summary.json"), result); err != nil {
		return err
	}

	logger.Log.Info().
		Str("store", base).
		Str("tier", string(result.Profile.Tier)).
		Str("cash_used", result.Summary.TotalCashUsed.StringFixed(2)).
		Float64("utilization_pct", result.Summary.UtilizationPct).
		Msg("store allocation complete")
	return nil
}
