package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"supplychain/internal/config"
	"supplychain/internal/crawler"
	"supplychain/internal/export"
	"supplychain/internal/models"
	"supplychain/internal/pipeline"
	"supplychain/internal/warehouse"
)

func fixture(name string) string {
	return filepath.Join("..", "fixtures", name)
}

func TestPipelineFlow_AllSources(t *testing.T) {
	films, err := os.ReadFile(fixture("films.json"))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(films)
	}))
	defer server.Close()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Pipeline.Output.RawPath = filepath.Join(dir, "raw")
	cfg.Pipeline.Output.TablesPath = filepath.Join(dir, "tables")
	cfg.Pipeline.Validation.MaxSkipRate = 0.5
	cfg.Warehouse.DSN = filepath.Join(dir, "warehouse.db")
	cfg.Pipeline.Sources = []config.SourceConfig{
		{Name: "products", File: fixture("products.json"), Enabled: true},
		{Name: "books", File: fixture("books.jsonl"), Enabled: true},
		{Name: "films", URL: server.URL + "/films.json", Enabled: true},
	}

	ctx := context.Background()

	// 1. Warehouse
	wh, err := warehouse.Open(ctx, cfg.Warehouse, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wh.Close()

	// 2. Fetch, normalize, export and load
	runner, err := pipeline.NewRunner(pipeline.Options{
		Config:  cfg,
		Fetcher: crawler.NewClientFromConfig(cfg, nil),
		Loader:  wh,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		SaveRaw: true,
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if code := summary.ExitCode(); code != 0 {
		t.Fatalf("Expected exit code 0, got %d (%v)", code, summary.Err())
	}

	// 3. Export on disk verifies against its manifest
	ds, err := export.Read(cfg.TablesPath())
	if err != nil {
		t.Fatalf("export.Read failed: %v", err)
	}

	if len(ds.Manifest.Sources) != 3 {
		t.Errorf("Expected 3 exported sources, got %d", len(ds.Manifest.Sources))
	}

	if _, err := os.Stat(cfg.RawPath("films")); err != nil {
		t.Errorf("Expected raw films dump: %v", err)
	}

	// 4. Warehouse contents
	counts := map[string]int64{}
	for _, c := range summary.Counts {
		counts[c.Table] = c.Rows
	}

	want := map[string]int64{
		models.TableInventory:     3,
		models.TableBookCatalog:   3,
		models.TableMedia:         2,
		models.TableMediaPerfXref: 4,
	}
	for table, rows := range want {
		if counts[table] != rows {
			t.Errorf("Expected %d rows in %s, got %d", rows, table, counts[table])
		}
	}

	books := summary.Outcomes[1].Report
	if books.Rejected != 1 {
		t.Errorf("Expected 1 rejected book, got %d", books.Rejected)
	}

	dune, err := wh.RunQuery(ctx, "SELECT auth_cd FROM BK_CATALOG WHERE bk_ttl = 'Dune'", 1)
	if err != nil {
		t.Fatalf("RunQuery failed: %v", err)
	}

	if dune.Rows != 1 || dune.Sample[0][0] != "HRB" {
		t.Errorf("Expected Dune by HRB, got %v", dune.Sample)
	}

	herbert, err := wh.RunQuery(ctx, "SELECT COUNT(*) FROM BK_CATALOG WHERE auth_cd = 'HRB'", 1)
	if err != nil {
		t.Fatalf("RunQuery failed: %v", err)
	}

	if herbert.Sample[0][0] != "2" {
		t.Errorf("Expected both Herbert books under one author code, got %v", herbert.Sample)
	}

	// 5. The unresolved similar product is the only orphan
	if len(summary.Orphans) != 1 {
		t.Fatalf("Expected 1 orphan reference, got %d: %+v", len(summary.Orphans), summary.Orphans)
	}

	orphan := summary.Orphans[0]
	if orphan.Table != models.TableInventorySimilar || orphan.Column != "sim_inv_id" {
		t.Errorf("Expected INV_SIM.sim_inv_id orphan, got %s.%s", orphan.Table, orphan.Column)
	}

	if len(orphan.Samples) != 1 || orphan.Samples[0] != "p-999" {
		t.Errorf("Expected orphan sample p-999, got %v", orphan.Samples)
	}
}
