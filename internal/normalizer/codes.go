package normalizer

import (
	"encoding/base32"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"supplychain/internal/models"
)

// Space is an independent namespace of surrogate codes backed by one reference table.
type Space string

// Label spaces.
const (
	SpaceProductCategories Space = "product_categories"
	SpaceBookCategories    Space = "book_categories"
	SpaceAuthors           Space = "authors"
	SpaceDirectors         Space = "directors"
	SpacePerformers        Space = "performers"
	SpaceAwards            Space = "awards"
)

var spaceTables = map[Space]string{
	SpaceProductCategories: models.TableCategoryRef,
	SpaceBookCategories:    models.TableBookCategoryRef,
	SpaceAuthors:           models.TableAuthorRef,
	SpaceDirectors:         models.TableDirectorRef,
	SpacePerformers:        models.TablePerformerRef,
	SpaceAwards:            models.TableAwardRef,
}

// Table returns the reference table of the space.
func (s Space) Table() string {
	return spaceTables[s]
}

// PersonNames reports whether labels in the space are personal names, which
// are coded by surname.
func (s Space) PersonNames() bool {
	switch s {
	case SpaceAuthors, SpaceDirectors, SpacePerformers:
		return true
	}

	return false
}

// Assigner defaults.
const (
	DefaultSentinel     = "UNK"
	DefaultSentinelName = "Unknown"
	DefaultMaxSuffix    = 99
	DefaultCodeLength   = 3
)

// AssignerOptions tunes code derivation. Zero values select the defaults.
type AssignerOptions struct {
	Sentinel     string
	SentinelName string
	MaxSuffix    int
	CodeLength   int
}

func (o AssignerOptions) withDefaults() AssignerOptions {
	if o.Sentinel == "" {
		o.Sentinel = DefaultSentinel
	}

	if o.SentinelName == "" {
		o.SentinelName = DefaultSentinelName
	}

	if o.MaxSuffix < 2 {
		o.MaxSuffix = DefaultMaxSuffix
	}

	if o.CodeLength <= 0 {
		o.CodeLength = DefaultCodeLength
	}

	return o
}

// Assigner maps labels of one space to short surrogate codes. The first
// normalized label to derive a candidate keeps it; later ones get a numeric suffix.
// An Assigner is not safe for concurrent use; its frozen LabelMap is.
type Assigner struct {
	space   Space
	opts    AssignerOptions
	byKey   map[string]string
	taken   map[string]struct{}
	entries []models.DimensionEntry
	frozen  bool
}

// NewAssigner creates an empty assigner for space.
func NewAssigner(space Space, opts AssignerOptions) *Assigner {
	return &Assigner{
		space: space,
		opts:  opts.withDefaults(),
		byKey: make(map[string]string),
		taken: make(map[string]struct{}),
	}
}

// Assign returns the code of label, deriving and recording a new one the
// first time a normalized label is seen. Blank labels map to the sentinel.
func (a *Assigner) Assign(label string) (string, error) {
	display, key := NormalizeLabel(label)
	if key == "" {
		return a.opts.Sentinel, nil
	}

	if code, ok := a.byKey[key]; ok {
		return code, nil
	}

	if a.frozen {
		return "", ErrFrozen
	}

	base := DeriveCandidate(display, a.space.PersonNames(), a.opts.CodeLength)

	code, err := a.claim(base)
	if err != nil {
		return "", &CollisionExhaustedError{Space: a.space, Label: label, Base: base, Attempts: a.opts.MaxSuffix}
	}

	a.byKey[key] = code
	a.entries = append(a.entries, models.DimensionEntry{
		Code:        code,
		Name:        display,
		SourceLabel: strings.TrimSpace(label),
	})

	return code, nil
}

func (a *Assigner) claim(base string) (string, error) {
	if a.free(base) {
		a.taken[base] = struct{}{}

		return base, nil
	}

	for n := 2; n <= a.opts.MaxSuffix; n++ {
		candidate := base + strconv.Itoa(n)
		if a.free(candidate) {
			a.taken[candidate] = struct{}{}

			return candidate, nil
		}
	}

	return "", ErrCollisionExhausted
}

func (a *Assigner) free(code string) bool {
	if code == a.opts.Sentinel {
		return false
	}

	_, used := a.taken[code]

	return !used
}

// Entries returns the assigned entries in first-seen order.
func (a *Assigner) Entries() []models.DimensionEntry {
	return append([]models.DimensionEntry(nil), a.entries...)
}

// Len returns the number of distinct labels assigned so far.
func (a *Assigner) Len() int {
	return len(a.entries)
}

// Freeze stops further assignment and returns the read-only label map.
func (a *Assigner) Freeze() LabelMap {
	a.frozen = true

	return LabelMap{space: a.space, sentinel: a.opts.Sentinel, codes: a.byKey}
}

// LabelMap is the completed, read-only label to code mapping of one space.
type LabelMap struct {
	codes    map[string]string
	space    Space
	sentinel string
}

// Lookup resolves a raw label. Blank labels resolve to the sentinel; anything
// else must already be in the map.
func (m LabelMap) Lookup(label string) (string, error) {
	_, key := NormalizeLabel(label)
	if key == "" {
		return m.sentinel, nil
	}

	code, ok := m.codes[key]
	if !ok {
		return "", &LabelMapMissError{Space: m.space, Label: label, Key: key}
	}

	return code, nil
}

// Space returns the label space of the map.
func (m LabelMap) Space() Space { return m.space }

// Sentinel returns the code used for blank labels.
func (m LabelMap) Sentinel() string { return m.sentinel }

// Len returns the number of mapped labels, excluding the sentinel.
func (m LabelMap) Len() int { return len(m.codes) }

var hashEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DeriveCandidate derives the unsuffixed code candidate of a normalized label.
// The key word is the surname for person names and the first word otherwise;
// it contributes its first letter and following consonants, then its remaining
// letters, and shorter words borrow from the next ones.
func DeriveCandidate(label string, person bool, length int) string {
	words := codeWords(label)
	if len(words) == 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(label))

		code := "X" + hashEncoding.EncodeToString(h.Sum(nil))
		if length < len(code) {
			code = code[:length]
		}

		return code
	}

	if person && len(words) > 1 {
		last := words[len(words)-1]
		words = append([][]rune{last}, words[:len(words)-1]...)
	}

	code := make([]rune, 0, length)
	for _, w := range words {
		code = abbreviate(code, w, length)
		if len(code) == length {
			break
		}
	}

	for len(code) < length {
		code = append(code, 'X')
	}

	return string(code)
}

func abbreviate(code, word []rune, length int) []rune {
	used := make([]bool, len(word))

	for i, r := range word {
		if len(code) == length {
			return code
		}

		if i > 0 && (isVowel(r) || (len(code) > 0 && code[len(code)-1] == r)) {
			continue
		}

		code = append(code, r)
		used[i] = true
	}

	for i, r := range word {
		if len(code) == length {
			break
		}

		if !used[i] {
			code = append(code, r)
		}
	}

	return code
}

// codeWords returns the upper-case ASCII letters and digits of each word.
func codeWords(label string) [][]rune {
	var words [][]rune

	for _, field := range strings.Fields(norm.NFKD.String(label)) {
		var w []rune

		for _, r := range field {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				w = append(w, unicode.ToUpper(r))
			}
		}

		if len(w) > 0 {
			words = append(words, w)
		}
	}

	return words
}

func isVowel(r rune) bool {
	return strings.ContainsRune("AEIOU", r)
}
