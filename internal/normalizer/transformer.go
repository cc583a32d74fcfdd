package normalizer

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"supplychain/internal/models"
)

// Coercion errors. They are recorded as data-quality issues, never returned to callers of Normalize.
var (
	ErrFieldMissing = errors.New("field missing")
	ErrUnparseable  = errors.New("value could not be parsed")
	ErrOutOfRange   = errors.New("value out of range")
)

var ratingWords = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
}

// Transformer coerces loosely typed raw fields into column values.
type Transformer struct {
	amountPattern   *regexp.Regexp
	numberPattern   *regexp.Regexp
	yearPattern     *regexp.Regexp
	fractionPattern *regexp.Regexp
	wordPattern     *regexp.Regexp
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		amountPattern:   regexp.MustCompile(`-?\d[\d.,]*`),
		numberPattern:   regexp.MustCompile(`(\d+(?:\.\d+)?)`),
		yearPattern:     regexp.MustCompile(`\b(1[89]\d{2}|2\d{3})\b`),
		fractionPattern: regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)$`),
		wordPattern:     regexp.MustCompile(`[A-Za-z]+`),
	}
}

// ParsePrice returns a non-negative price.
func (t *Transformer) ParsePrice(f models.Field) (float64, error) {
	v, err := t.ParseAmount(f)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		return 0, ErrOutOfRange
	}

	return v, nil
}

// ParseAmount reads a signed amount from a number or a string carrying
// currency symbols and either "1,299.00" or "1.299,00" grouping.
func (t *Transformer) ParseAmount(f models.Field) (float64, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return 0, ErrFieldMissing
	case models.FieldNumber:
		return f.Num, nil
	case models.FieldString:
	default:
		return 0, ErrUnparseable
	}

	m := t.amountPattern.FindString(f.Str)
	if m == "" {
		if strings.TrimSpace(f.Str) == "" {
			return 0, ErrFieldMissing
		}

		return 0, ErrUnparseable
	}

	neg := strings.HasPrefix(m, "-")
	m = strings.TrimRight(strings.TrimPrefix(m, "-"), ".,")

	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(m, ",") == 1 && len(m)-lastComma-1 != 3 {
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case strings.Count(m, ".") > 1:
		m = strings.ReplaceAll(m, ".", "")
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, ErrUnparseable
	}

	if neg {
		v = -v
	}

	return v, nil
}

// ParseRating returns a rating on the 1..5 scale.
func (t *Transformer) ParseRating(f models.Field) (int, error) {
	var v float64

	switch f.Kind {
	case models.FieldAbsent:
		return 0, ErrFieldMissing
	case models.FieldNumber:
		v = f.Num
	case models.FieldString:
		parsed, err := t.parseRatingText(f.Str)
		if err != nil {
			return 0, err
		}

		v = parsed
	default:
		return 0, ErrUnparseable
	}

	r := int(math.Round(v))
	if r < 1 || r > 5 {
		return 0, ErrOutOfRange
	}

	return r, nil
}

func (t *Transformer) parseRatingText(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrFieldMissing
	}

	if m := t.fractionPattern.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)

		if den <= 0 {
			return 0, ErrUnparseable
		}

		return num / den * 5, nil
	}

	if m := t.numberPattern.FindString(s); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, ErrUnparseable
		}

		return v, nil
	}

	for _, word := range t.wordPattern.FindAllString(s, -1) {
		if v, ok := ratingWords[strings.ToLower(word)]; ok {
			return float64(v), nil
		}
	}

	return 0, ErrUnparseable
}

// ParseYear returns a four-digit release year.
func (t *Transformer) ParseYear(f models.Field) (int, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return 0, ErrFieldMissing
	case models.FieldNumber:
		y := int(f.Num)
		if float64(y) != f.Num || y < 1800 || y > 2999 {
			return 0, ErrOutOfRange
		}

		return y, nil
	case models.FieldString:
		if strings.TrimSpace(f.Str) == "" {
			return 0, ErrFieldMissing
		}

		m := t.yearPattern.FindString(f.Str)
		if m == "" {
			return 0, ErrUnparseable
		}

		return strconv.Atoi(m)
	}

	return 0, ErrUnparseable
}

// ParseTime accepts RFC 3339 and a handful of common date layouts.
func (t *Transformer) ParseTime(f models.Field) (time.Time, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return time.Time{}, ErrFieldMissing
	case models.FieldString:
	default:
		return time.Time{}, ErrUnparseable
	}

	s := strings.TrimSpace(f.Str)
	if s == "" {
		return time.Time{}, ErrFieldMissing
	}

	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}

	return time.Time{}, ErrUnparseable
}

// ParseScore returns a similarity score.
func (t *Transformer) ParseScore(f models.Field) (float64, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return 0, ErrFieldMissing
	case models.FieldNumber:
		return f.Num, nil
	case models.FieldString:
		v, err := strconv.ParseFloat(strings.TrimSpace(f.Str), 64)
		if err != nil {
			return 0, ErrUnparseable
		}

		return v, nil
	}

	return 0, ErrUnparseable
}

// Text returns trimmed text, or def when the field is absent or blank.
func (t *Transformer) Text(f models.Field, def string) (string, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return def, ErrFieldMissing
	case models.FieldString, models.FieldNumber:
		s := helper.NormalizeWhitespace(f.Str)
		if s == "" {
			return def, ErrFieldMissing
		}

		return s, nil
	}

	return def, ErrUnparseable
}
