// Package crawler loads raw catalog records from local dumps or remote endpoints.
package crawler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"supplychain/internal/models"
)

// Parser errors.
var (
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrUnknownEnvelope = errors.New("payload is neither a record array, an envelope nor JSON lines")

	errTrailingData = errors.New("trailing data after JSON value")
)

// envelopeKeys are the object keys a record array may be wrapped under.
var envelopeKeys = []string{"items", "records", "data", "results"}

// Parser decodes raw record payloads. Numbers are kept as json.Number so
// prices and ids survive without float rounding.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// ParseRecords accepts a JSON array, an object wrapping an array under one of
// the envelope keys, or one JSON object per line.
func (p *Parser) ParseRecords(data []byte) ([]models.RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	switch data[0] {
	case '[':
		var records []models.RawRecord
		if err := decode(data, &records); err != nil {
			return nil, fmt.Errorf("failed to decode record array: %w", err)
		}

		return compact(records), nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := decode(data, &envelope); err == nil {
			for _, key := range envelopeKeys {
				if raw, ok := envelope[key]; ok {
					return p.ParseRecords(raw)
				}
			}
		}

		return p.parseLines(data)
	}

	return nil, ErrUnknownEnvelope
}

func (p *Parser) parseLines(data []byte) ([]models.RawRecord, error) {
	var records []models.RawRecord

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec models.RawRecord
		if err := decode(text, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrUnknownEnvelope, line, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan JSON lines: %w", err)
	}

	return records, nil
}

// decode reads exactly one JSON value from data.
func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

// compact drops null array elements.
func compact(records []models.RawRecord) []models.RawRecord {
	out := records[:0]

	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}
