package normalizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplychain/internal/models"
)

func TestBuildDimension_DedupAndOrder(t *testing.T) {
	records := []models.RawRecord{
		{"title": "Dune", "categories": "Sci-Fi, Classics"},
		{"title": "Emma", "categories": []any{"classics", "Romance"}},
		{"title": "Neuromancer", "categories": "SCI-FI"},
		{"title": "Blank", "categories": ""},
	}

	dim, err := BuildDimension(SpaceBookCategories, records, BookCategoryLabels, BuildOptions{})
	require.NoError(t, err)

	codes := make([]string, 0, len(dim.Entries))
	names := make([]string, 0, len(dim.Entries))

	for _, e := range dim.Entries {
		codes = append(codes, e.Code)
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"SCF", "CLS", "RMN"}, codes)
	assert.Equal(t, []string{"Sci-Fi", "Classics", "Romance"}, names)
	assert.Equal(t, "Sci-Fi", dim.Entries[0].SourceLabel)

	table := dim.Table()
	assert.Equal(t, models.TableBookCategoryRef, table.Spec.Name)
	require.Equal(t, 4, table.Len())
	assert.Equal(t, []any{"UNK", "Unknown"}, table.Rows[3])
}

func TestBuildDimension_Idempotent(t *testing.T) {
	records := []models.RawRecord{
		{"director": "Denis Villeneuve"},
		{"director": "Christopher Nolan"},
		{"director": "Jonathan Nolan"},
		{"director": "denis villeneuve"},
	}

	first, err := BuildDimension(SpaceDirectors, records, DirectorLabels, BuildOptions{})
	require.NoError(t, err)

	second, err := BuildDimension(SpaceDirectors, records, DirectorLabels, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
	assert.Len(t, first.Entries, 3)
}

func TestBuildDimension_Surjective(t *testing.T) {
	records := []models.RawRecord{
		{"actors": "Tom Hanks, Meg Ryan"},
		{"cast": []any{map[string]any{"name": "Bill Pullman", "role": "Walter"}}},
		{"actors": []any{"Rosie O'Donnell", "Tom  hanks"}},
	}

	dim, err := BuildDimension(SpacePerformers, records, PerformerLabels, BuildOptions{})
	require.NoError(t, err)

	for _, rec := range records {
		labels, err := PerformerLabels(rec)
		require.NoError(t, err)

		for _, l := range labels {
			_, err := dim.Labels.Lookup(l)
			assert.NoError(t, err, l)
		}
	}
}

func TestBuildDimension_MalformedFieldIsSkipped(t *testing.T) {
	records := []models.RawRecord{
		{"author": true},
		{"author": "Mary Shelley"},
		{"author": map[string]any{"name": "Bram Stoker"}},
	}

	dim, err := BuildDimension(SpaceAuthors, records, AuthorLabels, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, dim.Malformed)
	assert.Len(t, dim.Entries, 2)
}

func TestBuildDimension_ProgrammerErrors(t *testing.T) {
	_, err := BuildDimension(SpaceAuthors, nil, nil, BuildOptions{})
	assert.ErrorIs(t, err, ErrNilExtractor)

	broken := func(models.RawRecord) ([]string, error) {
		return nil, ErrExtractorShape
	}

	_, err = BuildDimension(SpaceAuthors, []models.RawRecord{{}}, broken, BuildOptions{})
	assert.ErrorIs(t, err, ErrExtractorShape)
	assert.True(t, IsFatal(err))
}

func TestBuildDimension_CollisionExhaustionIsFatal(t *testing.T) {
	records := []models.RawRecord{
		{"categories": "Scaf, Scof"},
		{"categories": "Scuf"},
	}

	_, err := BuildDimension(SpaceBookCategories, records, BookCategoryLabels,
		BuildOptions{Assigner: AssignerOptions{MaxSuffix: 2}})

	var exhausted *CollisionExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "Scuf", exhausted.Label)
}
