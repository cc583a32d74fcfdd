// Package main provides the tasks command that maintains the recurring
// business query tasks in the warehouse task registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"supplychain/internal/config"
	"supplychain/internal/logger"
	"supplychain/internal/report"
	"supplychain/internal/tasks"
	"supplychain/internal/warehouse"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml)")
	queries := fs.String("queries", "", "Business query catalog (overrides tasks.queries_file)")
	schedule := fs.String("schedule", "", "Schedule for created tasks (overrides tasks.schedule)")

	fs.Usage = func() {
		fmt.Println("Usage: tasks [flags] create [id...] | list | test [id...] | resume NAME | suspend NAME | drop NAME")
		fmt.Println()
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		fs.Usage()

		return 2
	}

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	if *queries != "" {
		cfg.Tasks.QueriesFile = *queries
	}

	if *schedule != "" {
		cfg.Tasks.Schedule = *schedule
	}

	log, closer, err := logger.Setup(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to set up logging: %v\n", err)

		return 1
	}
	defer closer.Close()

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

	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "create", "test":
		return runCatalog(ctx, cmd, rest, cfg, wh, log)
	case "list":
		list, err := wh.ListTasks(ctx)
		if err != nil {
			log.Error(fmt.Sprintf("❌ %v", err))

			return 1
		}

		fmt.Print(report.Tasks(list).String())
		fmt.Printf("\nTotal tasks: %d\n", len(list))

		return 0
	case "resume", "suspend", "drop":
		if len(rest) != 1 {
			fs.Usage()

			return 2
		}

		return changeTask(ctx, cmd, rest[0], wh, log)
	}

	fs.Usage()

	return 2
}

func runCatalog(ctx context.Context, cmd string, ids []string, cfg *config.Config, wh *warehouse.Warehouse, log *logger.Logger) int {
	catalog, err := tasks.LoadCatalog(cfg.Tasks.QueriesFile)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	selected, err := filterQueries(catalog.Successful(), ids)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	log.Info(fmt.Sprintf("Found %d successful queries", len(selected)))

	manager := tasks.NewManager(wh, cfg.Tasks.Schedule, log)

	if cmd == "test" {
		results := manager.Test(ctx, selected)
		fmt.Print(report.TaskTests(results).String())

		for _, r := range results {
			if r.Status == tasks.TestError {
				return 1
			}
		}

		return 0
	}

	result := manager.CreateAll(ctx, selected)

	fmt.Printf("Total tasks created: %d\n", len(result.Created))
	fmt.Printf("Total tasks failed: %d\n", len(result.Failed))

	for _, f := range result.Failed {
		fmt.Printf("  Query ID %d: %v\n", f.ID, f.Err)
	}

	if len(result.Failed) > 0 {
		return 1
	}

	return 0
}

func filterQueries(queries []tasks.Query, ids []string) ([]tasks.Query, error) {
	if len(ids) == 0 {
		return queries, nil
	}

	want := make(map[int]bool, len(ids))

	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid query id %q", raw)
		}

		want[id] = true
	}

	var out []tasks.Query

	for _, q := range queries {
		if want[q.ID] {
			out = append(out, q)
		}
	}

	return out, nil
}

func changeTask(ctx context.Context, cmd, name string, wh *warehouse.Warehouse, log *logger.Logger) int {
	var err error

	switch cmd {
	case "resume":
		err = wh.ResumeTask(ctx, name)
	case "suspend":
		err = wh.SuspendTask(ctx, name)
	case "drop":
		var dropped bool

		dropped, err = wh.DropTask(ctx, name)
		if err == nil && !dropped {
			log.Warn(fmt.Sprintf("⚠️  Task %s did not exist", warehouse.SanitizeTaskName(name)))
		}
	}

	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))

		return 1
	}

	log.Info(fmt.Sprintf("✅ %s %s", cmd, warehouse.SanitizeTaskName(name)))

	return 0
}
