package normalizer

import (
	"strings"

	"supplychain/internal/models"
)

// Field aliases per concept. Scrapers for the three catalogs disagree on naming.
var (
	productCategoryFields = []string{"category", "category_name", "cat"}
	bookCategoryFields    = []string{"categories", "category", "genres", "genre"}
	authorFields          = []string{"author", "authors", "author_name", "writer"}
	directorFields        = []string{"director", "director_name", "directors"}
	performerFields       = []string{"actors", "cast", "performers", "actor_list", "stars"}
	awardTextFields       = []string{"award", "award_name", "award_category"}

	priceFields        = []string{"price", "unit_price", "price_text", "cost"}
	ratingFields       = []string{"rating", "star_rating", "stars_text", "rtg"}
	yearFields         = []string{"year", "release_year", "yr"}
	descriptionFields  = []string{"description", "desc", "summary", "product_description"}
	availabilityFields = []string{"availability", "stock", "in_stock", "avail"}
	linkFields         = []string{"url", "link", "book_url", "product_url", "film_url", "product_id", "id"}
	scrapedAtFields    = []string{"scraped_at", "scrp_dt", "timestamp"}
	roleFields         = []string{"role", "character"}
)

// Derived labels and defaults.
const (
	AwardBestPicture    = "Best Picture"
	AwardAcademyWinner  = "Academy Award Winner"
	DefaultAvailability = "In Stock"
)

// DimensionPlan binds a label space to the single extractor every stage uses for it.
type DimensionPlan struct {
	Extract Extractor
	Space   Space
	// Bridge is the bridge table fed from this space, empty for single-valued references.
	Bridge string
}

// Plans lists the label spaces of each source in build order.
var Plans = map[models.Source][]DimensionPlan{
	models.SourceProducts: {
		{Space: SpaceProductCategories, Extract: ProductCategoryLabels},
	},
	models.SourceBooks: {
		{Space: SpaceBookCategories, Extract: BookCategoryLabels, Bridge: models.TableBookCategoryXref},
		{Space: SpaceAuthors, Extract: AuthorLabels},
	},
	models.SourceFilms: {
		{Space: SpaceDirectors, Extract: DirectorLabels},
		{Space: SpacePerformers, Extract: PerformerLabels, Bridge: models.TableMediaPerfXref},
		{Space: SpaceAwards, Extract: AwardLabels, Bridge: models.TableMediaAwardXref},
	},
}

// ProductCategoryLabels extracts a product's single category.
func ProductCategoryLabels(rec models.RawRecord) ([]string, error) {
	return SingleLabel(rec.Field(productCategoryFields...))
}

// BookCategoryLabels extracts every category of a book.
func BookCategoryLabels(rec models.RawRecord) ([]string, error) {
	return MultiLabels(rec.Field(bookCategoryFields...))
}

// AuthorLabels extracts a book's primary author.
func AuthorLabels(rec models.RawRecord) ([]string, error) {
	return SingleLabel(rec.Field(authorFields...))
}

// DirectorLabels extracts a film's director.
func DirectorLabels(rec models.RawRecord) ([]string, error) {
	return SingleLabel(rec.Field(directorFields...))
}

// PerformerLabels extracts a film's cast.
func PerformerLabels(rec models.RawRecord) ([]string, error) {
	return MultiLabels(rec.Field(performerFields...))
}

// AwardLabels extracts a film's awards. Explicit award text wins; otherwise a
// best-picture flag or a positive award count is turned into a label.
func AwardLabels(rec models.RawRecord) ([]string, error) {
	if f := rec.Field(awardTextFields...); f.Present() {
		return MultiLabels(f)
	}

	awards := rec.Field("awards")
	if awards.Kind == models.FieldString && !isCount(awards.Str) {
		return MultiLabels(awards)
	}

	switch awards.Kind {
	case models.FieldList, models.FieldObjectList, models.FieldObject:
		return MultiLabels(awards)
	}

	if best := rec.Field("best_picture"); best.Kind == models.FieldBool && best.Bool {
		return []string{AwardBestPicture}, nil
	}

	switch awards.Kind {
	case models.FieldAbsent:
		return nil, nil
	case models.FieldNumber:
		if awards.Num > 0 {
			return []string{AwardAcademyWinner}, nil
		}

		return nil, nil
	case models.FieldString:
		if strings.Trim(strings.TrimSpace(awards.Str), "0") != "" {
			return []string{AwardAcademyWinner}, nil
		}

		return nil, nil
	}

	return nil, &MalformedFieldError{Field: awards.Name, Kind: awards.Kind}
}

// performerRoles maps performer keys to the role given in object-shaped cast entries.
func performerRoles(rec models.RawRecord) map[string]string {
	f := rec.Field(performerFields...)
	if len(f.Objects) == 0 {
		return nil
	}

	roles := make(map[string]string)

	for _, obj := range f.Objects {
		_, key := NormalizeLabel(obj.String("name"))
		role := helper.NormalizeWhitespace(obj.String(roleFields...))

		if key == "" || role == "" {
			continue
		}

		if _, seen := roles[key]; !seen {
			roles[key] = role
		}
	}

	return roles
}

func isCount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
