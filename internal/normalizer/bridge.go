package normalizer

import (
	"errors"
	"fmt"

	"supplychain/internal/models"
)

// Bridge is one resolved many-to-many edge between a fact and a code.
type Bridge struct {
	FactKey string
	Code    string
	Label   string
}

// ResolveBridges expands the multi-valued field read by extract into bridge
// edges, one per distinct code, in first-seen order. Blank labels and absent or
// malformed fields produce no edges; the sentinel is never bridged.
func ResolveBridges(rec models.RawRecord, factKey string, extract Extractor, labels LabelMap) ([]Bridge, error) {
	if extract == nil {
		return nil, ErrNilExtractor
	}

	raw, err := extract(rec)
	if err != nil {
		if errors.Is(err, ErrExtractorShape) {
			return nil, fmt.Errorf("resolve %s for %s: %w", labels.Space(), factKey, err)
		}

		return nil, nil
	}

	seen := make(map[string]struct{}, len(raw))
	bridges := make([]Bridge, 0, len(raw))

	for _, label := range raw {
		if IsPlaceholder(label) {
			continue
		}

		code, err := labels.Lookup(label)
		if err != nil {
			return nil, fmt.Errorf("resolve %s for %s: %w", labels.Space(), factKey, err)
		}

		if _, dup := seen[code]; dup {
			continue
		}

		seen[code] = struct{}{}
		bridges = append(bridges, Bridge{FactKey: factKey, Code: code, Label: label})
	}

	return bridges, nil
}
