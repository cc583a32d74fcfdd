// Package main provides the status command: export manifest verification,
// warehouse row counts, orphan references and the task list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"supplychain/internal/config"
	"supplychain/internal/export"
	"supplychain/internal/logger"
	"supplychain/internal/report"
	"supplychain/internal/warehouse"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml)")
	skipExport := flag.Bool("skip-export", false, "Do not verify the CSV export")

	flag.Parse()

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

	status := 0

	if !*skipExport {
		ds, err := export.Read(cfg.TablesPath())
		if err != nil {
			fmt.Printf("❌ Export at %s: %v\n", cfg.TablesPath(), err)

			status = 1
		} else {
			m := ds.Manifest
			fmt.Printf("🔐 Export verified: run %s from %s, %d tables, %d rows, sources %v\n\n",
				m.RunID, m.CreatedAt.Format("2006-01-02 15:04:05"), len(m.Tables), m.Rows(), m.Sources)
		}
	}

	ctx := context.Background()

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

	counts, err := wh.Verify(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	fmt.Print(report.Counts(counts).String())

	orphans, err := wh.Orphans(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	fmt.Println()

	if len(orphans) == 0 {
		fmt.Println("✅ No orphan references")
	} else {
		fmt.Print(report.Orphans(orphans).String())
	}

	list, err := wh.ListTasks(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	fmt.Println()
	fmt.Print(report.Tasks(list).String())

	return status
}
