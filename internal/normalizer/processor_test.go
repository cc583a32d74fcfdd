package normalizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplychain/internal/models"
)

var fixedNow = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

func newTestProcessor() *Processor {
	return NewProcessor(ProcessorOptions{Now: fixedNow})
}

func TestProcessor_DuneExample(t *testing.T) {
	records := []models.RawRecord{{
		"title":    "Dune",
		"category": "Sci-Fi, Classics",
		"author":   "Frank Herbert",
		"price":    "$12.99",
		"rating":   nil,
	}}

	result, err := newTestProcessor().Process(models.SourceBooks, records)
	require.NoError(t, err)
	require.Len(t, result.Books, 1)

	book := result.Books[0]
	assert.Equal(t, "BK_000001", book.BookID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "HRB", book.AuthorCode)
	assert.Equal(t, 12.99, book.UnitPrice)
	assert.Nil(t, book.Rating)
	assert.Equal(t, DefaultAvailability, book.Availability)
	assert.Equal(t, fixedNow(), book.ScrapedAt)

	assert.Equal(t, []models.BookCategoryBridge{
		{BookID: "BK_000001", CategoryCode: "SCF"},
		{BookID: "BK_000001", CategoryCode: "CLS"},
	}, result.BookCategories)

	authors := result.Dimension(SpaceAuthors)
	require.NotNil(t, authors)
	assert.Equal(t, "Frank Herbert", authors.Entries[0].Name)
}

func TestProcessor_ProductSentinelCategory(t *testing.T) {
	records := []models.RawRecord{
		{"name": "Whey Protein", "category": "", "price": "29.99"},
		{"name": "Creatine", "category": "Supplements", "price": 14.5},
	}

	result, err := newTestProcessor().Process(models.SourceProducts, records)
	require.NoError(t, err)
	require.Len(t, result.Products, 2)

	assert.Equal(t, "UNK", result.Products[0].CategoryCode)
	assert.Equal(t, "SPL", result.Products[1].CategoryCode)
	assert.Equal(t, "INV_000002", result.Products[1].InvID)

	for _, table := range result.Tables() {
		if table.Spec.Group == models.GroupBridge {
			t.Errorf("products produced bridge table %s", table.Spec.Name)
		}
	}
}

func TestProcessor_RejectsUntitledRecords(t *testing.T) {
	records := make([]models.RawRecord, 0, 40)
	for i := 0; i < 39; i++ {
		records = append(records, models.RawRecord{"title": fmt.Sprintf("Book %d", i), "author": "Anon Writer"})
	}

	records = append(records, models.RawRecord{"title": "  ", "author": "Ghost"})

	result, err := newTestProcessor().Process(models.SourceBooks, records)
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, 40, report.Seen)
	assert.Equal(t, 39, report.Accepted)
	assert.Equal(t, 1, report.Rejected)
	assert.Len(t, result.Books, 39)
	assert.Equal(t, "BK_000039", result.Books[38].BookID)

	// The rejected record's author was still assigned a code.
	assert.Equal(t, 2, report.Dimensions[SpaceAuthors])
}

func TestProcessor_SkipRateGate(t *testing.T) {
	records := []models.RawRecord{
		{"title": "Alien", "director": "Ridley Scott"},
		{"title": ""},
		{"director": "Nobody"},
	}

	result, err := newTestProcessor().Process(models.SourceFilms, records)
	require.ErrorIs(t, err, ErrSkipRateExceeded)
	assert.True(t, result.Report.Failed())
	assert.InDelta(t, 2.0/3.0, result.Report.SkipRate(), 0.0001)
}

func TestProcessor_Films(t *testing.T) {
	records := []models.RawRecord{
		{
			"title":    "Sleepless in Seattle",
			"director": "Nora Ephron",
			"year":     "1993",
			"cast": []any{
				map[string]any{"name": "Tom Hanks", "role": "Sam Baldwin"},
				map[string]any{"name": "Meg Ryan"},
				map[string]any{"name": "tom hanks", "role": "duplicate"},
			},
			"award": "Best Original Song, BAFTA",
		},
		{"title": "Parasite", "director": "Bong Joon-ho", "year": 2019, "best_picture": true, "actors": "Song Kang-ho"},
		{"title": "Oppenheimer", "director": "Christopher Nolan", "year": 2023, "awards": 7},
		{"title": "Plan 9", "director": "", "year": "n/a"},
	}

	result, err := NewProcessor(ProcessorOptions{Now: fixedNow, MaxSkipRate: 0.5}).Process(models.SourceFilms, records)
	require.NoError(t, err)
	require.Len(t, result.Films, 4)

	first := result.Films[0]
	require.NotNil(t, first.Year)
	assert.Equal(t, 1993, *first.Year)
	assert.Equal(t, "BST", first.AwardCode)

	require.Len(t, result.Performers, 3)
	require.NotNil(t, result.Performers[0].Role)
	assert.Equal(t, "Sam Baldwin", *result.Performers[0].Role)
	assert.Nil(t, result.Performers[1].Role)

	assert.Equal(t, "UNK", result.Films[3].DirectorCode)
	assert.Equal(t, "UNK", result.Films[3].AwardCode)
	assert.Nil(t, result.Films[3].Year)

	awards := result.Dimension(SpaceAwards)
	require.NotNil(t, awards)

	names := make([]string, 0, len(awards.Entries))
	for _, e := range awards.Entries {
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"Best Original Song", "BAFTA", AwardBestPicture, AwardAcademyWinner}, names)

	require.Len(t, result.Awards, 4)
	for _, a := range result.Awards {
		assert.NotEqual(t, "UNK", a.AwardCode)
		assert.NotNil(t, a.AwardYear)
	}
}

func TestProcessor_ProductDetails(t *testing.T) {
	records := []models.RawRecord{
		{
			"name":       "Whey Protein",
			"product_id": "p-1",
			"category":   "Protein",
			"price":      "$39.99",
			"variants": []any{
				map[string]any{"size": "2 lb", "flavor": "Vanilla", "price_modifier": "0"},
				map[string]any{"size": "5 lb", "flavor": "Chocolate", "price_modifier": 25.5},
			},
			"reviews": []any{
				map[string]any{"rating": 5, "text": "Great", "reviewer": "Sam", "date": "2024-05-01"},
				map[string]any{"rating": "terrible", "text": "Clumpy"},
			},
			"similar_products": []any{
				map[string]any{"product_id": "p-2", "score": 0.9},
				map[string]any{"product_id": "p-404"},
				map[string]any{"product_id": "p-2", "score": 0.8},
			},
		},
		{"name": "Casein", "product_id": "p-2", "category": "Protein", "price": 30},
	}

	result, err := newTestProcessor().Process(models.SourceProducts, records)
	require.NoError(t, err)

	require.Len(t, result.Variants, 2)
	assert.Equal(t, "INV_000001_VAR_2", result.Variants[1].VariantID)
	assert.Equal(t, 25.5, result.Variants[1].PriceModifier)

	require.Len(t, result.Reviews, 2)
	assert.Equal(t, "INV_000001_REV_1", result.Reviews[0].ReviewID)
	require.NotNil(t, result.Reviews[0].Reviewer)
	assert.Equal(t, "Sam", *result.Reviews[0].Reviewer)
	assert.Nil(t, result.Reviews[1].Rating)

	require.Len(t, result.Similar, 2)
	assert.Equal(t, "INV_000002", result.Similar[0].SimilarInvID)
	assert.Equal(t, "p-404", result.Similar[1].SimilarInvID)
	assert.Equal(t, 1, result.Report.Issues["reviews.rating"])

	assert.Equal(t, 2, result.Report.Tables[models.TableInventoryVariant])
}

func TestProcessor_UnknownSource(t *testing.T) {
	result, err := newTestProcessor().Process(models.Source("music"), nil)
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.True(t, result.Report.Failed())
}

func TestProcessor_SourcesAreIndependent(t *testing.T) {
	p := newTestProcessor()

	products, err := p.Process(models.SourceProducts, []models.RawRecord{{"name": "Kettle", "category": "Classics"}})
	require.NoError(t, err)

	books, err := p.Process(models.SourceBooks, []models.RawRecord{{"title": "Emma", "category": "Romance, Classics"}})
	require.NoError(t, err)

	assert.Equal(t, "CLS", products.Products[0].CategoryCode)
	assert.Equal(t, "RMN", books.BookCategories[0].CategoryCode)
	assert.Equal(t, "CLS", books.BookCategories[1].CategoryCode)
}

func TestProcessor_FilmsMixedCastAndPlaceholderDirector(t *testing.T) {
	records := []models.RawRecord{{
		"title":    "You've Got Mail",
		"director": []any{"N/A", "Christopher Nolan"},
		"cast":     []any{map[string]any{"name": "Tom Hanks", "role": "Joe Fox"}, "Meg Ryan"},
	}}

	result, err := newTestProcessor().Process(models.SourceFilms, records)
	require.NoError(t, err)
	require.Len(t, result.Films, 1)

	directors := result.Dimension(SpaceDirectors)
	require.NotNil(t, directors)
	require.Equal(t, "Christopher Nolan", directors.Entries[0].Name)
	assert.Equal(t, directors.Entries[0].Code, result.Films[0].DirectorCode)
	assert.NotEqual(t, "UNK", result.Films[0].DirectorCode)

	require.Len(t, result.Performers, 2)
	require.NotNil(t, result.Performers[0].Role)
	assert.Equal(t, "Joe Fox", *result.Performers[0].Role)
	assert.Nil(t, result.Performers[1].Role)
}
