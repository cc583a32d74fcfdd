package normalizer

import (
	"errors"
	"fmt"

	"supplychain/internal/models"
)

// Normalization errors.
var (
	ErrCollisionExhausted = errors.New("code collision could not be resolved")
	ErrFrozen             = errors.New("label space is frozen")
	ErrLabelMapMiss       = errors.New("label missing from completed label map")
	ErrMalformedField     = errors.New("malformed label field")
	ErrExtractorShape     = errors.New("extractor returned an unsupported shape")
	ErrNilExtractor       = errors.New("extractor is nil")
	ErrSkipRateExceeded   = errors.New("skip rate exceeded")
	ErrUnknownSource      = errors.New("unknown source")
)

// CollisionExhaustedError reports a label whose candidate code and every
// suffixed variant are already taken.
type CollisionExhaustedError struct {
	Space    Space
	Label    string
	Base     string
	Attempts int
}

func (e *CollisionExhaustedError) Error() string {
	return fmt.Sprintf("%s: %q derives %s, no free suffix after %d attempts: %v",
		e.Space, e.Label, e.Base, e.Attempts, ErrCollisionExhausted)
}

func (e *CollisionExhaustedError) Unwrap() error { return ErrCollisionExhausted }

// LabelMapMissError reports a label that reached fact or bridge resolution
// without an entry in its space's map.
type LabelMapMissError struct {
	Space Space
	Label string
	Key   string
}

func (e *LabelMapMissError) Error() string {
	return fmt.Sprintf("%s: label %q (key %q): %v", e.Space, e.Label, e.Key, ErrLabelMapMiss)
}

func (e *LabelMapMissError) Unwrap() error { return ErrLabelMapMiss }

// MalformedFieldError reports a label field whose shape cannot carry labels.
type MalformedFieldError struct {
	Field string
	Kind  models.FieldKind
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("field %q has shape %s: %v", e.Field, e.Kind, ErrMalformedField)
}

func (e *MalformedFieldError) Unwrap() error { return ErrMalformedField }

// IsFatal reports whether err must abort the source rather than be absorbed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCollisionExhausted) ||
		errors.Is(err, ErrLabelMapMiss) ||
		errors.Is(err, ErrExtractorShape) ||
		errors.Is(err, ErrNilExtractor)
}
