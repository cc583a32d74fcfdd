package normalizer

import (
	"fmt"
	"time"

	"supplychain/internal/logger"
	"supplychain/internal/models"
)

// DefaultMaxSkipRate is the share of rejected records above which a source fails.
const DefaultMaxSkipRate = 0.05

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	Now         func() time.Time
	Logger      *logger.Logger
	Assigner    AssignerOptions
	MaxSkipRate float64
}

// Processor runs the whole normalization of one source: dimensions first,
// then facts, bridges and details.
type Processor struct {
	log  *logger.Logger
	opts ProcessorOptions
}

// NewProcessor creates a new processor instance.
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.MaxSkipRate <= 0 {
		opts.MaxSkipRate = DefaultMaxSkipRate
	}

	return &Processor{log: opts.Logger, opts: opts}
}

// Result holds every row produced for one source.
type Result struct {
	Report         *Report
	Source         models.Source
	Dimensions     []*Dimension
	Products       []models.Product
	Books          []models.Book
	Films          []models.Film
	BookCategories []models.BookCategoryBridge
	Performers     []models.FilmPerformerBridge
	Awards         []models.FilmAwardBridge
	Variants       []models.ProductVariant
	Reviews        []models.ProductReview
	Similar        []models.SimilarProduct
}

// Tables materializes the source's tables in load order: dimensions, facts,
// bridges, details.
func (r *Result) Tables() []*models.Table {
	var tables []*models.Table

	for _, d := range r.Dimensions {
		tables = append(tables, d.Table())
	}

	switch r.Source {
	case models.SourceProducts:
		tables = append(tables,
			models.NewTable(models.TableInventory, r.Products),
			models.NewTable(models.TableInventoryVariant, r.Variants),
			models.NewTable(models.TableInventoryReview, r.Reviews),
			models.NewTable(models.TableInventorySimilar, r.Similar),
		)
	case models.SourceBooks:
		tables = append(tables,
			models.NewTable(models.TableBookCatalog, r.Books),
			models.NewTable(models.TableBookCategoryXref, r.BookCategories),
		)
	case models.SourceFilms:
		tables = append(tables,
			models.NewTable(models.TableMedia, r.Films),
			models.NewTable(models.TableMediaPerfXref, r.Performers),
			models.NewTable(models.TableMediaAwardXref, r.Awards),
		)
	}

	return tables
}

// Dimension returns the built dimension of space, or nil.
func (r *Result) Dimension(space Space) *Dimension {
	for _, d := range r.Dimensions {
		if d.Space == space {
			return d
		}
	}

	return nil
}

// Process normalizes the records of one source. The returned report is always
// set; a non-nil error means the source failed and its rows must not be loaded.
func (p *Processor) Process(source models.Source, records []models.RawRecord) (*Result, error) {
	started := p.opts.Now()
	log := p.log.With("source", string(source))

	result := &Result{Source: source, Report: NewReport(source)}
	report := result.Report

	defer func() {
		report.Duration = p.opts.Now().Sub(started)
	}()

	fail := func(err error) (*Result, error) {
		report.Fail(err)
		log.Error("source failed", "error", err)

		return result, err
	}

	plans, ok := Plans[source]
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownSource, source))
	}

	labels := make(map[Space]LabelMap, len(plans))

	for _, plan := range plans {
		dim, err := BuildDimension(plan.Space, records, plan.Extract, BuildOptions{Logger: log, Assigner: p.opts.Assigner})
		if err != nil {
			return fail(err)
		}

		result.Dimensions = append(result.Dimensions, dim)
		labels[plan.Space] = dim.Labels
		report.Dimensions[plan.Space] = len(dim.Entries)
		report.Malformed[plan.Space] = dim.Malformed
	}

	facts, err := NewFactNormalizer(source, labels, FactOptions{Now: p.opts.Now, Logger: log, Report: report})
	if err != nil {
		return fail(err)
	}

	var (
		similar []similarRef
		keys    = make(map[string]string)
	)

	for _, rec := range records {
		fact, skipped, err := facts.Normalize(rec)
		if err != nil {
			return fail(err)
		}

		if skipped != nil {
			continue
		}

		if err := p.collect(result, fact, plans, labels); err != nil {
			return fail(err)
		}

		if fact.Product != nil {
			result.Variants = append(result.Variants, facts.Variants(fact)...)
			result.Reviews = append(result.Reviews, facts.Reviews(fact)...)
			similar = append(similar, facts.similar(fact)...)

			if ref := rec.String(productRefs...); ref != "" {
				if _, dup := keys[ref]; !dup {
					keys[ref] = fact.Key
				}
			}
		}
	}

	result.Similar = resolveSimilar(similar, keys)

	for _, t := range result.Tables() {
		report.Tables[t.Spec.Name] = t.Len()
	}

	if rate := report.SkipRate(); rate > p.opts.MaxSkipRate {
		return fail(fmt.Errorf("%s: %w: %.1f%% of %d records rejected, limit %.1f%%",
			source, ErrSkipRateExceeded, rate*100, report.Seen, p.opts.MaxSkipRate*100))
	}

	log.Info(fmt.Sprintf("normalized %d of %d records (%d rejected, %d issues)",
		report.Accepted, report.Seen, report.Rejected, report.IssueCount()))

	return result, nil
}

// collect appends the fact row and its bridges.
func (p *Processor) collect(result *Result, fact *Fact, plans []DimensionPlan, labels map[Space]LabelMap) error {
	switch {
	case fact.Product != nil:
		result.Products = append(result.Products, *fact.Product)
	case fact.Book != nil:
		result.Books = append(result.Books, *fact.Book)
	case fact.Film != nil:
		result.Films = append(result.Films, *fact.Film)
	}

	var roles map[string]string
	if fact.Film != nil {
		roles = performerRoles(fact.Record)
	}

	for _, plan := range plans {
		if plan.Bridge == "" {
			continue
		}

		bridges, err := ResolveBridges(fact.Record, fact.Key, plan.Extract, labels[plan.Space])
		if err != nil {
			return err
		}

		for _, b := range bridges {
			switch plan.Bridge {
			case models.TableBookCategoryXref:
				result.BookCategories = append(result.BookCategories, models.BookCategoryBridge{BookID: b.FactKey, CategoryCode: b.Code})
			case models.TableMediaPerfXref:
				row := models.FilmPerformerBridge{MediaID: b.FactKey, PerformerCode: b.Code}
				if _, key := NormalizeLabel(b.Label); roles[key] != "" {
					role := roles[key]
					row.Role = &role
				}

				result.Performers = append(result.Performers, row)
			case models.TableMediaAwardXref:
				result.Awards = append(result.Awards, models.FilmAwardBridge{MediaID: b.FactKey, AwardCode: b.Code, AwardYear: fact.Film.Year})
			}
		}
	}

	return nil
}
