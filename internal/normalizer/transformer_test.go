package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"supplychain/internal/models"
)

func field(v any) models.Field {
	if v == nil {
		return models.Field{Kind: models.FieldAbsent}
	}

	return models.ClassifyField("f", v)
}

func TestTransformer_ParsePrice(t *testing.T) {
	tr := NewTransformer()

	tests := []struct {
		in      any
		want    float64
		wantErr error
	}{
		{"$12.99", 12.99, nil},
		{"£51.77", 51.77, nil},
		{"Â£51.77", 51.77, nil},
		{"€ 1.299,00", 1299, nil},
		{"1,299.00", 1299, nil},
		{"12,99", 12.99, nil},
		{"1,299", 1299, nil},
		{json.Number("7.5"), 7.5, nil},
		{19.0, 19, nil},
		{"free", 0, ErrUnparseable},
		{"", 0, ErrFieldMissing},
		{nil, 0, ErrFieldMissing},
		{"-4.00", 0, ErrOutOfRange},
		{true, 0, ErrUnparseable},
	}

	for _, tt := range tests {
		got, err := tr.ParsePrice(field(tt.in))
		if err != tt.wantErr {
			t.Errorf("ParsePrice(%v) error = %v, want %v", tt.in, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("ParsePrice(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTransformer_ParseRating(t *testing.T) {
	tr := NewTransformer()

	tests := []struct {
		in      any
		want    int
		wantErr error
	}{
		{4, 4, nil},
		{"3", 3, nil},
		{"4/5", 4, nil},
		{"8/10", 4, nil},
		{"Five", 5, nil},
		{"star-rating Three", 3, nil},
		{"4.6 out of 5", 5, nil},
		{0, 0, ErrOutOfRange},
		{"7", 0, ErrOutOfRange},
		{"great", 0, ErrUnparseable},
		{nil, 0, ErrFieldMissing},
	}

	for _, tt := range tests {
		got, err := tr.ParseRating(field(tt.in))
		if err != tt.wantErr {
			t.Errorf("ParseRating(%v) error = %v, want %v", tt.in, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("ParseRating(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTransformer_ParseYear(t *testing.T) {
	tr := NewTransformer()

	tests := []struct {
		in      any
		want    int
		wantErr error
	}{
		{2021, 2021, nil},
		{"1994", 1994, nil},
		{"Released in 2010 (USA)", 2010, nil},
		{2021.5, 0, ErrOutOfRange},
		{"soon", 0, ErrUnparseable},
		{"", 0, ErrFieldMissing},
	}

	for _, tt := range tests {
		got, err := tr.ParseYear(field(tt.in))
		if err != tt.wantErr {
			t.Errorf("ParseYear(%v) error = %v, want %v", tt.in, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("ParseYear(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTransformer_ParseTime(t *testing.T) {
	tr := NewTransformer()
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-09T00:00:00Z", "2024-03-09", "March 9, 2024", "Mar 9, 2024"} {
		got, err := tr.ParseTime(field(in))
		if err != nil || !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v, %v", in, got, err)
		}
	}

	if _, err := tr.ParseTime(field("yesterday")); err != ErrUnparseable {
		t.Errorf("ParseTime(yesterday) error = %v", err)
	}
}

func TestTransformer_Text(t *testing.T) {
	tr := NewTransformer()

	if got, err := tr.Text(field("  In   stock (22 available) "), DefaultAvailability); err != nil || got != "In stock (22 available)" {
		t.Errorf("Text = %q, %v", got, err)
	}

	if got, err := tr.Text(field(nil), DefaultAvailability); err != ErrFieldMissing || got != DefaultAvailability {
		t.Errorf("Text(nil) = %q, %v", got, err)
	}
}
