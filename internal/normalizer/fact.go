package normalizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"supplychain/internal/logger"
	"supplychain/internal/models"
)

var keyPrefixes = map[models.Source]string{
	models.SourceProducts: "INV",
	models.SourceBooks:    "BK",
	models.SourceFilms:    "MEDIA",
}

// SkippedRecord is a rejected raw record.
type SkippedRecord struct {
	Err    error  `json:"-"`
	Reason string `json:"reason"`
	Index  int    `json:"index"`
}

// Fact is one accepted record. Exactly one of Product, Book and Film is set.
type Fact struct {
	Record  models.RawRecord
	Product *models.Product
	Book    *models.Book
	Film    *models.Film
	Key     string
	Index   int
}

// FactOptions configures a FactNormalizer.
type FactOptions struct {
	Now    func() time.Time
	Logger *logger.Logger
	Report *Report
}

// FactNormalizer turns the records of one source into fact rows. Keys are
// assigned in acceptance order, so a normalizer must not be shared between goroutines.
type FactNormalizer struct {
	labels      map[Space]LabelMap
	extractors  map[Space]Extractor
	transformer *Transformer
	validator   *Validator
	now         func() time.Time
	log         *logger.Logger
	report      *Report
	source      models.Source
	prefix      string
	seen        int
	seq         int
}

// NewFactNormalizer creates a normalizer reading codes from the completed label maps.
func NewFactNormalizer(source models.Source, labels map[Space]LabelMap, opts FactOptions) (*FactNormalizer, error) {
	plans, ok := Plans[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	extractors := make(map[Space]Extractor, len(plans))

	for _, plan := range plans {
		if _, ok := labels[plan.Space]; !ok {
			return nil, fmt.Errorf("%s: no label map for %s: %w", source, plan.Space, ErrLabelMapMiss)
		}

		extractors[plan.Space] = plan.Extract
	}

	n := &FactNormalizer{
		labels:      labels,
		extractors:  extractors,
		transformer: NewTransformer(),
		validator:   NewValidator(),
		now:         opts.Now,
		log:         opts.Logger,
		report:      opts.Report,
		source:      source,
		prefix:      keyPrefixes[source],
	}

	if n.now == nil {
		n.now = time.Now
	}

	if n.log == nil {
		n.log = logger.Discard()
	}

	if n.report == nil {
		n.report = NewReport(source)
	}

	return n, nil
}

// Normalize converts one record. A rejected record yields a SkippedRecord; the
// error return is reserved for label map misses and broken extractors.
func (n *FactNormalizer) Normalize(rec models.RawRecord) (*Fact, *SkippedRecord, error) {
	index := n.seen
	n.seen++
	n.report.Seen++

	title, err := n.validator.Title(rec)
	if err != nil {
		return nil, n.reject(index, err), nil
	}

	fact := &Fact{Record: rec, Key: n.nextKey(), Index: index}

	switch n.source {
	case models.SourceProducts:
		err = n.product(fact, title)
	case models.SourceBooks:
		err = n.book(fact, title)
	case models.SourceFilms:
		err = n.film(fact, title)
	}

	if err != nil {
		if errors.Is(err, ErrInvalidRow) {
			return nil, n.reject(index, err), nil
		}

		return nil, nil, err
	}

	n.seq++
	n.report.Accepted++

	return fact, nil, nil
}

func (n *FactNormalizer) nextKey() string {
	return fmt.Sprintf("%s_%06d", n.prefix, n.seq+1)
}

func (n *FactNormalizer) reject(index int, err error) *SkippedRecord {
	skipped := &SkippedRecord{Index: index, Reason: err.Error(), Err: err}
	n.report.Reject(*skipped)
	n.log.Warn("rejected record", "source", string(n.source), "index", index, "reason", skipped.Reason)

	return skipped
}

func (n *FactNormalizer) product(fact *Fact, title string) error {
	rec := fact.Record

	category, err := n.single(SpaceProductCategories, rec)
	if err != nil {
		return err
	}

	p := &models.Product{
		InvID:        fact.Key,
		Name:         title,
		UnitPrice:    n.price(fact.Key, rec),
		CategoryCode: category,
		Description:  n.text(fact.Key, "description", rec.Field(descriptionFields...), ""),
		LinkID:       n.linkID(rec),
		ScrapedAt:    n.scrapedAt(fact.Key, rec),
	}

	if err := n.validator.Row(p); err != nil {
		return err
	}

	fact.Product = p

	return nil
}

func (n *FactNormalizer) book(fact *Fact, title string) error {
	rec := fact.Record

	author, err := n.single(SpaceAuthors, rec)
	if err != nil {
		return err
	}

	b := &models.Book{
		BookID:       fact.Key,
		Title:        title,
		UnitPrice:    n.price(fact.Key, rec),
		AuthorCode:   author,
		Availability: n.text(fact.Key, "availability", rec.Field(availabilityFields...), DefaultAvailability),
		Rating:       n.rating(fact.Key, "rating", rec.Field(ratingFields...)),
		Description:  n.text(fact.Key, "description", rec.Field(descriptionFields...), ""),
		LinkID:       n.linkID(rec),
		ScrapedAt:    n.scrapedAt(fact.Key, rec),
	}

	if err := n.validator.Row(b); err != nil {
		return err
	}

	fact.Book = b

	return nil
}

func (n *FactNormalizer) film(fact *Fact, title string) error {
	rec := fact.Record

	director, err := n.single(SpaceDirectors, rec)
	if err != nil {
		return err
	}

	award, err := n.single(SpaceAwards, rec)
	if err != nil {
		return err
	}

	f := &models.Film{
		MediaID:      fact.Key,
		Title:        title,
		Year:         n.year(fact.Key, rec),
		AwardCode:    award,
		DirectorCode: director,
		ScrapedAt:    n.scrapedAt(fact.Key, rec),
	}

	if err := n.validator.Row(f); err != nil {
		return err
	}

	fact.Film = f

	return nil
}

// single resolves the first label of a space, falling back to the sentinel
// when the field is absent, blank or malformed.
func (n *FactNormalizer) single(space Space, rec models.RawRecord) (string, error) {
	labels := n.labels[space]

	raw, err := n.extractors[space](rec)
	if err != nil {
		if errors.Is(err, ErrExtractorShape) {
			return "", fmt.Errorf("%s: %w", space, err)
		}

		return labels.Sentinel(), nil
	}

	for _, label := range raw {
		if IsPlaceholder(label) {
			continue
		}

		return labels.Lookup(label)
	}

	return labels.Sentinel(), nil
}

func (n *FactNormalizer) price(key string, rec models.RawRecord) float64 {
	f := rec.Field(priceFields...)

	v, err := n.transformer.ParsePrice(f)
	if err != nil {
		n.issue(key, "price", f, err)

		return 0
	}

	return v
}

func (n *FactNormalizer) rating(key, field string, f models.Field) *int {
	v, err := n.transformer.ParseRating(f)
	if err != nil {
		n.issue(key, field, f, err)

		return nil
	}

	return &v
}

func (n *FactNormalizer) year(key string, rec models.RawRecord) *int {
	f := rec.Field(yearFields...)

	v, err := n.transformer.ParseYear(f)
	if err != nil {
		n.issue(key, "year", f, err)

		return nil
	}

	return &v
}

func (n *FactNormalizer) text(key, field string, f models.Field, def string) string {
	v, err := n.transformer.Text(f, def)
	if err != nil {
		n.issue(key, field, f, err)
	}

	return v
}

func (n *FactNormalizer) scrapedAt(key string, rec models.RawRecord) time.Time {
	f := rec.Field(scrapedAtFields...)

	ts, err := n.transformer.ParseTime(f)
	if err != nil {
		if !errors.Is(err, ErrFieldMissing) {
			n.issue(key, "scraped_at", f, err)
		}

		return n.now().UTC()
	}

	return ts
}

// linkID is stable across runs when the record carries a URL or id.
func (n *FactNormalizer) linkID(rec models.RawRecord) string {
	if ref := rec.String(linkFields...); ref != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(n.source)+":"+ref)).String()
	}

	return uuid.NewString()
}

func (n *FactNormalizer) issue(key, field string, f models.Field, err error) {
	value, _ := f.Text()
	n.report.AddIssue(Issue{Key: key, Field: field, Value: value, Reason: err.Error()})

	if errors.Is(err, ErrFieldMissing) {
		n.log.Debug("defaulted missing field", "source", string(n.source), "key", key, "field", field)

		return
	}

	n.log.Warn("defaulted malformed field", "source", string(n.source), "key", key, "field", field,
		"value", helper.TruncateString(value, 40), "reason", err.Error())
}
