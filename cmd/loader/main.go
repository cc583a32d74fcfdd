// Package main provides the loader command that moves a verified CSV export
// into the SQL warehouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"supplychain/internal/config"
	"supplychain/internal/export"
	"supplychain/internal/logger"
	"supplychain/internal/pipeline"
	"supplychain/internal/report"
	"supplychain/internal/warehouse"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml)")
	input := flag.String("input", "", "Export directory (overrides output.tables_path)")
	dsn := flag.String("dsn", "", "Warehouse DSN (overrides warehouse.dsn)")
	noViews := flag.Bool("no-views", false, "Skip analytical view creation")

	flag.Parse()

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	if *input != "" {
		cfg.Pipeline.Output.TablesPath = *input
	}

	if *dsn != "" {
		cfg.Warehouse.DSN = *dsn
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(fmt.Sprintf("📂 Reading export from %s", cfg.TablesPath()))

	ds, err := export.Read(cfg.TablesPath())
	if err != nil {
		log.Error(fmt.Sprintf("❌ Export rejected: %v", err))

		return 1
	}

	log.Info(fmt.Sprintf("🔐 Manifest verified: run %s, %d tables, %d rows",
		ds.Manifest.RunID, len(ds.Manifest.Tables), ds.Manifest.Rows()))

	wh, err := warehouse.Open(ctx, cfg.Warehouse, log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Failed to open warehouse: %v", err))

		return 1
	}
	defer wh.Close()

	if err := wh.EnsureSchema(ctx); err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	_, failures := pipeline.LoadDataset(ctx, wh, ds, log)

	if !*noViews {
		if err := wh.CreateViews(ctx); err != nil {
			log.Error(fmt.Sprintf("❌ %v", err))

			return 1
		}
	}

	counts, err := wh.Verify(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	fmt.Println()
	fmt.Print(report.Counts(counts).String())

	if orphans, err := wh.Orphans(ctx); err == nil && len(orphans) > 0 {
		fmt.Println()
		fmt.Print(report.Orphans(orphans).String())
	}

	if len(failures) > 0 {
		log.Error(fmt.Sprintf("❌ %d sources failed to load", len(failures)))

		return 1
	}

	log.Info("✅ Load complete")

	return 0
}
