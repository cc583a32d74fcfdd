package normalizer

import (
	"errors"
	"testing"
	"time"

	"supplychain/internal/models"
)

func TestValidator_Title(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		rec     models.RawRecord
		want    string
		wantErr error
	}{
		{models.RawRecord{"title": "  Dune  "}, "Dune", nil},
		{models.RawRecord{"name": "Whey   Protein"}, "Whey Protein", nil},
		{models.RawRecord{"title": 1984}, "1984", nil},
		{models.RawRecord{}, "", ErrMissingTitle},
		{models.RawRecord{"title": nil}, "", ErrMissingTitle},
		{models.RawRecord{"title": true}, "", ErrMissingTitle},
		{models.RawRecord{"title": "N/A"}, "", ErrPlaceholderTitle},
	}

	for _, tt := range tests {
		got, err := v.Title(tt.rec)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Title(%v) error = %v, want %v", tt.rec, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("Title(%v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestValidator_Row(t *testing.T) {
	v := NewValidator()
	rating := 6

	valid := models.Book{
		BookID: "BK_000001", Title: "Dune", AuthorCode: "HRB", Availability: "In Stock",
		LinkID: "x", ScrapedAt: time.Now(),
	}

	if err := v.Row(valid); err != nil {
		t.Errorf("Row(valid) = %v", err)
	}

	invalid := valid
	invalid.Rating = &rating
	invalid.UnitPrice = -1

	err := v.Row(invalid)
	if !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("Row(invalid) = %v, want ErrInvalidRow", err)
	}
}
