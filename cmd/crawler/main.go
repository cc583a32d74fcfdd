// Package main provides the crawler command-line tool that fetches raw catalog
// dumps and stores them under the raw output path.
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
	"supplychain/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml)")
	only := flag.String("source", "", "Fetch only this source (products, books or films)")
	targetURL := flag.String("url", "", "Fetch -source from this URL instead of the configured one")
	localFile := flag.String("file", "", "Read -source from this local JSON file instead")
	output := flag.String("output", "", "Raw output directory (overrides output.raw_path)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()

		return 0
	}

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	if *output != "" {
		cfg.Pipeline.Output.RawPath = *output
	}

	sources, err := selectSources(cfg, *only, *targetURL, *localFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		printUsage()

		return 1
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

	printCrawlerHeader(cfg, len(sources))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := crawler.NewClientFromConfig(cfg, log)
	failed := 0

	for _, src := range sources {
		fmt.Printf("⏳ %s: %s\n", src.Name, src.GetSource())

		result, err := client.Load(ctx, src)
		if err != nil {
			fmt.Printf("❌ %s failed: %v\n", src.Name, err)

			failed++

			continue
		}

		path := cfg.RawPath(src.Name)
		if err := client.SaveRecords(result.Records, path, cfg.Pipeline.Output.PrettyPrint); err != nil {
			fmt.Printf("❌ %s: could not save records: %v\n", src.Name, err)

			failed++

			continue
		}

		fmt.Printf("✅ %s: %d records (%d bytes, %.2fms) → %s\n",
			src.Name, len(result.Records), result.Bytes, float64(result.Duration.Microseconds())/1000, path)

		if result.Stats.TotalAttempts > 0 {
			fmt.Printf("   %s\n", result.Stats)
		}
	}

	fmt.Println()

	if failed > 0 {
		fmt.Printf("⚠️  %d of %d sources failed\n", failed, len(sources))

		return 1
	}

	fmt.Printf("✨ Fetched %d sources\n", len(sources))

	return 0
}

// selectSources applies the command-line overrides to the configured sources.
func selectSources(cfg *config.Config, only, url, file string) ([]config.SourceConfig, error) {
	if (url != "" || file != "") && only == "" {
		return nil, fmt.Errorf("-url and -file need -source")
	}

	if only == "" {
		sources := cfg.GetEnabledSources()
		if len(sources) == 0 {
			return nil, fmt.Errorf("no enabled sources in configuration")
		}

		return sources, nil
	}

	src, ok := cfg.GetSource(only)
	if !ok {
		src = config.SourceConfig{Name: only}
	}

	src.Enabled = true

	if url != "" {
		if !utils.NewHTTPHelper().IsValidURL(url) {
			return nil, fmt.Errorf("invalid -url %q", url)
		}

		src.URL, src.File, src.BackupURLs = url, "", nil
	}

	if file != "" {
		src.File = file
	}

	if src.URL == "" && src.File == "" {
		return nil, fmt.Errorf("source %q has no url or file", only)
	}

	return []config.SourceConfig{src}, nil
}

func printCrawlerHeader(cfg *config.Config, sources int) {
	fmt.Println("🕷️  Catalog Crawler")
	fmt.Printf("Sources: %d\n", sources)
	fmt.Printf("Retry policy: max %d attempts, %.1fx backoff\n",
		cfg.Pipeline.Retry.MaxAttempts,
		cfg.Pipeline.Retry.BackoffMultiplier)
	fmt.Printf("Output: %s\n", cfg.Pipeline.Output.RawPath)
	fmt.Println()
}

func printUsage() {
	fmt.Println("Usage: crawler [-config path] [-source name [-url url | -file path]] [-output dir]")
	fmt.Println()
	flag.PrintDefaults()
}
