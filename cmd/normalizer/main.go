// Package main provides the normalizer command-line tool that turns raw dumps
// into CSV tables with a signed manifest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"supplychain/internal/config"
	"supplychain/internal/crawler"
	"supplychain/internal/logger"
	"supplychain/internal/pipeline"
	"supplychain/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml)")
	input := flag.String("input", "", "Raw dump directory (overrides output.raw_path)")
	output := flag.String("output", "", "Table directory (overrides output.tables_path)")
	reportPath := flag.String("report", "", "Also write the per-source reports as JSON to this file")

	flag.Parse()

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	if *input != "" {
		cfg.Pipeline.Output.RawPath = *input
	}

	if *output != "" {
		cfg.Pipeline.Output.TablesPath = *output
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

	// Every enabled source is read back from its raw dump.
	for i := range cfg.Pipeline.Sources {
		src := &cfg.Pipeline.Sources[i]
		src.File = cfg.RawPath(src.Name)
		src.URL, src.BackupURLs = "", nil
	}

	if len(cfg.GetEnabledSources()) == 0 {
		log.Error("❌ No enabled sources in configuration")

		return 1
	}

	fmt.Printf("📂 Reading raw dumps from %s\n", cfg.Pipeline.Output.RawPath)

	runner, err := pipeline.NewRunner(pipeline.Options{
		Config:  cfg,
		Fetcher: crawler.NewClientFromConfig(cfg, log),
		Logger:  log,
	})
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	summary, err := runner.Run(context.Background())

	fmt.Println()
	fmt.Print(report.Sources(summary.Reports()).String())

	if *reportPath != "" {
		if werr := writeReports(*reportPath, summary); werr != nil {
			log.Warn(fmt.Sprintf("⚠️  Could not write report: %v", werr))
		} else {
			fmt.Printf("\n💾 Report written to %s\n", *reportPath)
		}
	}

	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	if summary.Manifest != nil {
		fmt.Printf("\n📦 %d tables, %d rows → %s (run %s)\n",
			len(summary.Manifest.Tables), summary.Manifest.Rows(), cfg.TablesPath(), summary.RunID)
	}

	return summary.ExitCode()
}

func writeReports(path string, summary *pipeline.Summary) error {
	data, err := json.MarshalIndent(map[string]any{
		"runId":   summary.RunID,
		"sources": summary.Reports(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
