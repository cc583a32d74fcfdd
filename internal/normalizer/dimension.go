package normalizer

import (
	"errors"
	"fmt"

	"supplychain/internal/logger"
	"supplychain/internal/models"
)

// Extractor pulls the raw labels of one label space out of a record. An error
// means the field is malformed for that record; ErrExtractorShape means the
// extractor itself is broken.
type Extractor func(models.RawRecord) ([]string, error)

// Dimension is a built reference table together with its frozen label map.
type Dimension struct {
	Space     Space
	Entries   []models.DimensionEntry
	Sentinel  models.DimensionEntry
	Labels    LabelMap
	Malformed int
}

// Table materializes the dimension with the sentinel row appended last.
func (d *Dimension) Table() *models.Table {
	entries := make([]models.DimensionEntry, 0, len(d.Entries)+1)
	entries = append(entries, d.Entries...)
	entries = append(entries, d.Sentinel)

	return models.DimensionTable(d.Space.Table(), entries)
}

// BuildOptions configures BuildDimension.
type BuildOptions struct {
	Logger   *logger.Logger
	Assigner AssignerOptions
}

// BuildDimension scans every record once and assigns a code to each distinct
// label. Malformed fields are logged and skipped for that record only.
func BuildDimension(space Space, records []models.RawRecord, extract Extractor, opts BuildOptions) (*Dimension, error) {
	if extract == nil {
		return nil, fmt.Errorf("%s: %w", space, ErrNilExtractor)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	assigner := NewAssigner(space, opts.Assigner)
	dim := &Dimension{Space: space}

	for i, rec := range records {
		labels, err := extract(rec)
		if err != nil {
			if errors.Is(err, ErrExtractorShape) {
				return nil, fmt.Errorf("%s: record %d: %w", space, i, err)
			}

			dim.Malformed++
			log.Warn("skipping malformed label field", "space", string(space), "record", i, "error", err)

			continue
		}

		for _, label := range labels {
			if _, err := assigner.Assign(label); err != nil {
				return nil, fmt.Errorf("build %s: %w", space, err)
			}
		}
	}

	dim.Entries = assigner.Entries()
	dim.Labels = assigner.Freeze()

	defaults := assigner.opts
	dim.Sentinel = models.DimensionEntry{Code: defaults.Sentinel, Name: defaults.SentinelName}

	log.Debug(fmt.Sprintf("built %s: %d codes, %d malformed", space, len(dim.Entries), dim.Malformed))

	return dim, nil
}
