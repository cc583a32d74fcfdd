// Package normalizer turns raw scraped records into dimension, fact, bridge and
// detail rows with stable surrogate codes.
package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"supplychain/internal/models"
	"supplychain/pkg/utils"
)

var (
	helper = utils.NewStringHelper()

	// Slashes only split when surrounded by spaces so "AC/DC" survives.
	labelDelimiter = regexp.MustCompile(`\s*(?:[,;|\n]|\s/\s)\s*`)

	placeholderLabels = map[string]struct{}{
		"unknown":       {},
		"n/a":           {},
		"na":            {},
		"none":          {},
		"null":          {},
		"nil":           {},
		"not specified": {},
		"not available": {},
		"-":             {},
		"--":            {},
		"tbd":           {},
	}
)

const labelTrimSet = "\"'`“”‘’«»,;:|"

// NormalizeLabel returns the display form and the comparison key of a raw label.
// Both are empty for blank and placeholder labels.
func NormalizeLabel(raw string) (display, key string) {
	s := norm.NFKC.String(raw)
	s = helper.NormalizeWhitespace(s)
	s = strings.Trim(s, labelTrimSet)
	s = helper.TrimWhitespace(s)

	if s == "" {
		return "", ""
	}

	key = cases.Fold().String(s)
	if _, ok := placeholderLabels[key]; ok {
		return "", ""
	}

	return titleCase(s), key
}

// IsPlaceholder reports whether raw normalizes to nothing.
func IsPlaceholder(raw string) bool {
	_, key := NormalizeLabel(raw)

	return key == ""
}

// titleCase upper-cases the first letter of each word and leaves the rest alone,
// so acronyms such as "J.R.R." and "USA" keep their casing.
func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// SplitLabels splits a delimited multi-valued string into raw labels.
func SplitLabels(s string) []string {
	parts := labelDelimiter.Split(s, -1)
	out := parts[:0]

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// MultiLabels reads a multi-valued field. Delimited strings are split; list
// elements are taken whole.
func MultiLabels(f models.Field) ([]string, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return nil, nil
	case models.FieldString:
		return SplitLabels(f.Str), nil
	case models.FieldNumber:
		return []string{f.Str}, nil
	case models.FieldList, models.FieldObjectList:
		return nonBlank(f.List), nil
	case models.FieldObject:
		if name := f.Objects[0].String("name"); name != "" {
			return []string{name}, nil
		}

		return nil, nil
	}

	return nil, &MalformedFieldError{Field: f.Name, Kind: f.Kind}
}

// SingleLabel reads a single-valued field. Lists contribute their first entry
// that is not a placeholder.
func SingleLabel(f models.Field) ([]string, error) {
	switch f.Kind {
	case models.FieldAbsent:
		return nil, nil
	case models.FieldString:
		if s := strings.TrimSpace(f.Str); s != "" {
			return []string{s}, nil
		}

		return nil, nil
	case models.FieldNumber:
		return []string{f.Str}, nil
	case models.FieldList, models.FieldObjectList, models.FieldObject:
		labels, err := MultiLabels(f)
		if err != nil {
			return nil, err
		}

		for _, label := range labels {
			if !IsPlaceholder(label) {
				return []string{label}, nil
			}
		}

		return nil, nil
	}

	return nil, &MalformedFieldError{Field: f.Name, Kind: f.Kind}
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))

	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}

	return out
}
