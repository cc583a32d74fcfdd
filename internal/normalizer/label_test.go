package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplychain/internal/models"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw     string
		display string
		key     string
	}{
		{"  sci-fi ", "Sci-Fi", "sci-fi"},
		{"Frank   Herbert", "Frank Herbert", "frank herbert"},
		{"FRANK HERBERT", "FRANK HERBERT", "frank herbert"},
		{"\"Classics\"", "Classics", "classics"},
		{"Ｃｌａｓｓｉｃｓ", "Classics", "classics"},
		{"J.R.R. tolkien", "J.R.R. Tolkien", "j.r.r. tolkien"},
		{"", "", ""},
		{"   ", "", ""},
		{"N/A", "", ""},
		{"Unknown", "", ""},
		{"not specified", "", ""},
	}

	for _, tt := range tests {
		display, key := NormalizeLabel(tt.raw)
		assert.Equal(t, tt.display, display, "display of %q", tt.raw)
		assert.Equal(t, tt.key, key, "key of %q", tt.raw)
	}
}

func TestSplitLabels(t *testing.T) {
	assert.Equal(t, []string{"Sci-Fi", "Classics"}, SplitLabels("Sci-Fi, Classics"))
	assert.Equal(t, []string{"Action", "Action", "Comedy"}, SplitLabels("Action, Action, Comedy"))
	assert.Equal(t, []string{"AC/DC", "Queen"}, SplitLabels("AC/DC | Queen"))
	assert.Equal(t, []string{"Drama", "Romance"}, SplitLabels("Drama / Romance;"))
	assert.Empty(t, SplitLabels("  "))
}

func TestMultiLabels_Shapes(t *testing.T) {
	rec := models.RawRecord{
		"text":    "Horror; Thriller",
		"list":    []any{"Tom Hanks", " ", "Meg Ryan"},
		"objects": []any{map[string]any{"name": "Tom Hanks", "role": "Sam"}},
		"flag":    true,
	}

	labels, err := MultiLabels(rec.Field("text"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Horror", "Thriller"}, labels)

	labels, err = MultiLabels(rec.Field("list"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Tom Hanks", "Meg Ryan"}, labels)

	labels, err = MultiLabels(rec.Field("objects"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Tom Hanks"}, labels)

	labels, err = MultiLabels(rec.Field("missing"))
	require.NoError(t, err)
	assert.Empty(t, labels)

	_, err = MultiLabels(rec.Field("flag"))
	assert.ErrorIs(t, err, ErrMalformedField)
}

func TestSingleLabel_TakesFirstListEntry(t *testing.T) {
	rec := models.RawRecord{"author": []any{"Neil Gaiman", "Terry Pratchett"}, "comma": "Smith, John"}

	labels, err := SingleLabel(rec.Field("author"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Neil Gaiman"}, labels)

	labels, err = SingleLabel(rec.Field("comma"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Smith, John"}, labels)
}

func TestSingleLabel_SkipsPlaceholders(t *testing.T) {
	rec := models.RawRecord{"director": []any{"N/A", "Nolan"}, "none": []any{"unknown", "-"}}

	labels, err := SingleLabel(rec.Field("director"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Nolan"}, labels)

	labels, err = SingleLabel(rec.Field("none"))
	require.NoError(t, err)
	assert.Empty(t, labels)
}
