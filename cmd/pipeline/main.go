// Package main provides the pipeline command that fetches, normalizes,
// exports and loads every enabled source in one run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"supplychain/internal/config"
	"supplychain/internal/crawler"
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
	noLoad := flag.Bool("no-load", false, "Stop after the CSV export")
	saveRaw := flag.Bool("save-raw", true, "Keep fetched records under the raw output path")
	level := flag.String("log-level", "", "Override logging.level")

	flag.Parse()

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	if *level != "" {
		cfg.Pipeline.Logging.Level = *level
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

	if len(cfg.GetEnabledSources()) == 0 {
		log.Error("❌ No enabled sources in configuration")

		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipeline.Options{
		Config:  cfg,
		Fetcher: crawler.NewClientFromConfig(cfg, log),
		Logger:  log,
		SaveRaw: *saveRaw,
	}

	if !*noLoad {
		wh, err := warehouse.Open(ctx, cfg.Warehouse, log)
		if err != nil {
			log.Error(fmt.Sprintf("❌ Failed to open warehouse: %v", err))

			return 1
		}
		defer wh.Close()

		opts.Loader = wh
	}

	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	summary, err := runner.Run(ctx)

	fmt.Println()
	fmt.Print(report.Sources(summary.Reports()).String())

	for _, r := range summary.Reports() {
		if r.IssueCount() > 0 {
			fmt.Println()
			fmt.Print(report.Issues(r).String())
		}

		if r.Rejected > 0 {
			fmt.Println()
			fmt.Print(report.Rejections(r).String())
		}
	}

	if summary.Counts != nil {
		fmt.Println()
		fmt.Print(report.Counts(summary.Counts).String())
	}

	if len(summary.Orphans) > 0 {
		fmt.Println()
		fmt.Print(report.Orphans(summary.Orphans).String())
	}

	if err != nil {
		log.Error(fmt.Sprintf("❌ Run %s aborted: %v", summary.RunID, err))

		return 1
	}

	if err := summary.Err(); err != nil {
		log.Error(fmt.Sprintf("❌ Run %s finished with failures: %v", summary.RunID, err))

		return summary.ExitCode()
	}

	log.Info(fmt.Sprintf("✨ Run %s complete in %v", summary.RunID, summary.Duration))

	return 0
}
