// Package pipeline runs fetch, normalization, export and load for every
// enabled source and isolates the failure of one source from the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"supplychain/internal/config"
	"supplychain/internal/crawler"
	"supplychain/internal/export"
	"supplychain/internal/logger"
	"supplychain/internal/models"
	"supplychain/internal/normalizer"
	"supplychain/internal/warehouse"
)

// Stages a source can fail in.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageLoad      = "load"
)

// ErrSourcesFailed is returned by Summary.Err when at least one source failed.
var ErrSourcesFailed = errors.New("one or more sources failed")

// Fetcher loads raw records for a source.
type Fetcher interface {
	Load(ctx context.Context, src config.SourceConfig) (*crawler.FetchResult, error)
	SaveRecords(records []models.RawRecord, path string, pretty bool) error
}

// Loader is the warehouse side of a run.
type Loader interface {
	EnsureSchema(ctx context.Context) error
	LoadSource(ctx context.Context, source models.Source, tables []*models.Table) (*warehouse.LoadResult, error)
	CreateViews(ctx context.Context) error
	Verify(ctx context.Context) ([]warehouse.TableCount, error)
	Orphans(ctx context.Context) ([]warehouse.Orphan, error)
}

// Options configures a Runner.
type Options struct {
	Config  *config.Config
	Fetcher Fetcher
	// Loader is optional; without it the run stops after the CSV export.
	Loader Loader
	Logger *logger.Logger
	Now    func() time.Time
	RunID  string
	// SaveRaw keeps the fetched records under the configured raw path.
	SaveRaw bool
}

// Outcome is what happened to one source.
type Outcome struct {
	Err    error
	Report *normalizer.Report
	Fetch  *crawler.FetchResult
	Load   *warehouse.LoadResult
	Source models.Source
	Stage  string
	Tables []*models.Table
}

// Failed reports whether the source failed at any stage.
func (o *Outcome) Failed() bool {
	return o.Err != nil
}

// Fatal reports whether normalization aborted on a broken invariant (code
// collision exhaustion, label map miss, bad extractor) rather than a quality gate.
func (o *Outcome) Fatal() bool {
	return o.Stage == StageNormalize && normalizer.IsFatal(o.Err)
}

func (o *Outcome) fail(stage string, err error) {
	o.Stage, o.Err = stage, err
	o.Report.Fail(fmt.Errorf("%s: %w", stage, err))
}

// Summary is the result of a whole run.
type Summary struct {
	Manifest *export.Manifest
	RunID    string
	Outcomes []*Outcome
	Counts   []warehouse.TableCount
	Orphans  []warehouse.Orphan
	Duration time.Duration
}

// Reports returns the per-source reports in configuration order.
func (s *Summary) Reports() []*normalizer.Report {
	reports := make([]*normalizer.Report, len(s.Outcomes))
	for i, o := range s.Outcomes {
		reports[i] = o.Report
	}

	return reports
}

// Failed returns the sources that failed.
func (s *Summary) Failed() []models.Source {
	var failed []models.Source

	for _, o := range s.Outcomes {
		if o.Failed() {
			failed = append(failed, o.Source)
		}
	}

	return failed
}

// Err returns ErrSourcesFailed naming the failed sources, or nil.
func (s *Summary) Err() error {
	if failed := s.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrSourcesFailed, failed)
	}

	return nil
}

// ExitCode is 1 when any source failed, 0 otherwise.
func (s *Summary) ExitCode() int {
	if len(s.Failed()) > 0 {
		return 1
	}

	return 0
}

// Runner executes pipeline runs.
type Runner struct {
	log  *logger.Logger
	opts Options
}

// NewRunner creates a runner. A run id is generated when none is given.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}

	if opts.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.RunID == "" {
		id, err := export.NewRunID()
		if err != nil {
			return nil, err
		}

		opts.RunID = id
	}

	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	return &Runner{log: opts.Logger.With("run", opts.RunID), opts: opts}, nil
}

// RunID returns the id stamped on this run's exports.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Run processes every enabled source. Source failures are recorded in the
// summary; the returned error is reserved for failures that affect the whole
// run (export, schema, views) and for cancellation.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := r.opts.Now()
	cfg := r.opts.Config
	sources := cfg.GetEnabledSources()

	summary := &Summary{RunID: r.opts.RunID, Outcomes: make([]*Outcome, len(sources))}
	defer func() { summary.Duration = r.opts.Now().Sub(start) }()

	r.log.Info(fmt.Sprintf("🚀 Starting run %s with %d sources", r.opts.RunID, len(sources)))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Advanced.SequentialSources {
		g.SetLimit(1)
	}

	for i, src := range sources {
		outcome := &Outcome{Source: models.Source(src.Name), Report: normalizer.NewReport(models.Source(src.Name))}
		summary.Outcomes[i] = outcome

		g.Go(func() error {
			r.processSource(gctx, src, outcome)

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	var (
		ok     []models.Source
		tables []*models.Table
	)

	for _, o := range summary.Outcomes {
		if o.Failed() {
			continue
		}

		ok = append(ok, o.Source)
		tables = append(tables, o.Tables...)
	}

	manifest, err := export.NewWriter(cfg.TablesPath(), r.log).Write(r.opts.RunID, ok, tables)
	if err != nil {
		return summary, fmt.Errorf("export failed: %w", err)
	}

	summary.Manifest = manifest

	if r.opts.Loader == nil {
		return summary, nil
	}

	if err := r.load(ctx, summary); err != nil {
		return summary, err
	}

	return summary, nil
}

func (r *Runner) processSource(ctx context.Context, src config.SourceConfig, outcome *Outcome) {
	cfg := r.opts.Config
	log := r.log.With("source", src.Name)

	fetch, err := r.opts.Fetcher.Load(ctx, src)
	if err != nil {
		outcome.fail(StageFetch, err)
		log.Error(fmt.Sprintf("❌ Fetch failed: %v", err))

		return
	}

	outcome.Fetch = fetch

	if r.opts.SaveRaw {
		path := cfg.RawPath(src.Name)
		if err := r.opts.Fetcher.SaveRecords(fetch.Records, path, cfg.Pipeline.Output.PrettyPrint); err != nil {
			log.Warn(fmt.Sprintf("⚠️  Could not save raw dump: %v", err))
		}
	}

	processor := normalizer.NewProcessor(normalizer.ProcessorOptions{
		Now:         r.opts.Now,
		Logger:      log,
		MaxSkipRate: cfg.Pipeline.Validation.MaxSkipRate,
		Assigner: normalizer.AssignerOptions{
			Sentinel:     cfg.Pipeline.Codes.Sentinel,
			SentinelName: cfg.Pipeline.Codes.SentinelName,
			MaxSuffix:    cfg.Pipeline.Codes.MaxSuffix,
			CodeLength:   cfg.Pipeline.Codes.Length,
		},
	})

	result, err := processor.Process(outcome.Source, fetch.Records)
	if result != nil {
		outcome.Report = result.Report
	}

	outcome.Report.Fetched = len(fetch.Records)

	if err != nil {
		outcome.fail(StageNormalize, err)

		if outcome.Fatal() {
			log.Error(fmt.Sprintf("❌ Normalization aborted: %v", err))
		} else {
			log.Warn(fmt.Sprintf("⚠️  Source rejected: %v", err))
		}

		return
	}

	outcome.Tables = result.Tables()

	r.progress(log, fmt.Sprintf("✅ %s: %d of %d records normalized into %d tables",
		src.Name, outcome.Report.Accepted, outcome.Report.Seen, len(outcome.Tables)))
}

// progress logs per-source milestones at info when logging.show_progress is
// set and at debug otherwise.
func (r *Runner) progress(log *logger.Logger, msg string) {
	if r.opts.Config.Pipeline.Logging.ShowProgress {
		log.Info(msg)

		return
	}

	log.Debug(msg)
}

func (r *Runner) load(ctx context.Context, summary *Summary) error {
	loader := r.opts.Loader

	if err := loader.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}

	// Load what was exported, so the warehouse only ever sees verified files.
	ds, err := export.Read(r.opts.Config.TablesPath())
	if err != nil {
		return fmt.Errorf("export verification failed: %w", err)
	}

	for _, o := range summary.Outcomes {
		if o.Failed() {
			r.log.Warn(fmt.Sprintf("⏭️  Skipping load of failed source %s", o.Source))

			continue
		}

		res, err := loader.LoadSource(ctx, o.Source, ds.Source(o.Source))
		if err != nil {
			o.fail(StageLoad, err)
			r.log.Error(fmt.Sprintf("❌ Load failed for %s: %v", o.Source, err))

			continue
		}

		o.Load = res
	}

	if err := loader.CreateViews(ctx); err != nil {
		return fmt.Errorf("view creation failed: %w", err)
	}

	counts, err := loader.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	summary.Counts = counts

	orphans, err := loader.Orphans(ctx)
	if err != nil {
		return fmt.Errorf("orphan check failed: %w", err)
	}

	summary.Orphans = orphans

	if len(orphans) > 0 {
		r.log.Warn(fmt.Sprintf("🔗 %d references without a parent row", len(orphans)))
	}

	return nil
}

// LoadDataset loads every source listed in an export's manifest. Each source
// loads in its own transaction; failures are returned per source.
func LoadDataset(ctx context.Context, loader Loader, ds *export.Dataset, log *logger.Logger) (map[models.Source]*warehouse.LoadResult, map[models.Source]error) {
	results := make(map[models.Source]*warehouse.LoadResult)
	failures := make(map[models.Source]error)

	for _, source := range ds.Manifest.Sources {
		res, err := loader.LoadSource(ctx, source, ds.Source(source))
		if err != nil {
			failures[source] = err
			log.Error(fmt.Sprintf("❌ Load failed for %s: %v", source, err))

			continue
		}

		results[source] = res
	}

	return results, failures
}
