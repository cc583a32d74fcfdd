package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"supplychain/internal/models"
)

// Validation errors.
var (
	ErrMissingTitle     = errors.New("missing title")
	ErrPlaceholderTitle = errors.New("title is a placeholder")
	ErrInvalidRow       = errors.New("row failed validation")
)

// titleFields are the aliases a record may carry its identifying title under.
var titleFields = []string{"title", "name", "product_name", "book_title", "film_title"}

// Validator checks records and normalized rows.
type Validator struct {
	rows *validator.Validate
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{rows: validator.New(validator.WithRequiredStructEnabled())}
}

// Title returns the record's title or the reason it has none.
func (v *Validator) Title(rec models.RawRecord) (string, error) {
	f := rec.Field(titleFields...)

	text, ok := f.Text()
	if !ok || f.Kind == models.FieldBool {
		return "", ErrMissingTitle
	}

	title := helper.NormalizeWhitespace(text)
	if title == "" {
		return "", ErrMissingTitle
	}

	if IsPlaceholder(title) {
		return "", fmt.Errorf("%w: %q", ErrPlaceholderTitle, title)
	}

	return title, nil
}

// Row validates struct tags of a normalized row.
func (v *Validator) Row(row any) error {
	err := v.rows.Struct(row)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	failed := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failed = append(failed, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidRow, strings.Join(failed, ", "))
}
