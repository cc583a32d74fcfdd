// Package models defines the raw scraped records and the normalized warehouse rows.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Source identifies one scraped catalog.
type Source string

// Known sources.
const (
	SourceProducts Source = "products"
	SourceBooks    Source = "books"
	SourceFilms    Source = "films"
)

// Sources lists every source in processing order.
var Sources = []Source{SourceProducts, SourceBooks, SourceFilms}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceProducts, SourceBooks, SourceFilms:
		return true
	}

	return false
}

// RawRecord is one item as produced by the scraper. Nothing about its shape is guaranteed.
type RawRecord map[string]any

// FieldKind tags the shape a raw field arrived in.
type FieldKind int

// Field shapes.
const (
	FieldAbsent FieldKind = iota
	FieldString
	FieldNumber
	FieldBool
	FieldList
	FieldObject
	FieldObjectList
	FieldInvalid
)

var fieldKindNames = map[FieldKind]string{
	FieldAbsent:     "absent",
	FieldString:     "string",
	FieldNumber:     "number",
	FieldBool:       "bool",
	FieldList:       "list",
	FieldObject:     "object",
	FieldObjectList: "object-list",
	FieldInvalid:    "invalid",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Field is a raw value after its shape has been checked.
type Field struct {
	Raw     any
	Name    string
	Str     string
	List    []string
	Objects []RawRecord
	Num     float64
	Kind    FieldKind
	Bool    bool
}

// Present reports whether the field carries a value at all.
func (f Field) Present() bool {
	return f.Kind != FieldAbsent
}

// Text returns the scalar text of the field. Numbers and booleans are rendered.
func (f Field) Text() (string, bool) {
	switch f.Kind {
	case FieldString, FieldNumber:
		return f.Str, true
	case FieldBool:
		return strconv.FormatBool(f.Bool), true
	}

	return "", false
}

// Field returns the first present field among the aliases.
func (r RawRecord) Field(aliases ...string) Field {
	for _, name := range aliases {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}

		return ClassifyField(name, v)
	}

	name := ""
	if len(aliases) > 0 {
		name = aliases[0]
	}

	return Field{Name: name, Kind: FieldAbsent}
}

// String returns the trimmed text of the first present alias, or "".
func (r RawRecord) String(aliases ...string) string {
	text, _ := r.Field(aliases...).Text()

	return strings.TrimSpace(text)
}

// ClassifyField inspects a decoded JSON value and tags its shape.
func ClassifyField(name string, v any) Field {
	f := Field{Name: name, Raw: v}

	switch val := v.(type) {
	case nil:
		f.Kind = FieldAbsent
	case string:
		f.Kind = FieldString
		f.Str = val
	case json.Number:
		f.Str = val.String()

		n, err := val.Float64()
		if err != nil {
			f.Kind = FieldInvalid

			return f
		}

		f.Kind = FieldNumber
		f.Num = n
	case float64:
		f.Kind = FieldNumber
		f.Num = val
		f.Str = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		f.Kind = FieldNumber
		f.Num = float64(val)
		f.Str = strconv.Itoa(val)
	case int64:
		f.Kind = FieldNumber
		f.Num = float64(val)
		f.Str = strconv.FormatInt(val, 10)
	case bool:
		f.Kind = FieldBool
		f.Bool = val
	case []string:
		f.Kind = FieldList
		f.List = append([]string(nil), val...)
	case map[string]any:
		f.Kind = FieldObject
		f.Objects = []RawRecord{val}
	case RawRecord:
		f.Kind = FieldObject
		f.Objects = []RawRecord{val}
	case []map[string]any:
		f.Kind = FieldObjectList
		for _, obj := range val {
			f.Objects = append(f.Objects, obj)
		}
	case []RawRecord:
		f.Kind = FieldObjectList
		f.Objects = append(f.Objects, val...)
	case []any:
		classifyList(&f, val)
	default:
		f.Kind = FieldInvalid
	}

	return f
}

// classifyList sorts a heterogeneous JSON array into a text list or an object list.
// Objects mixed into a text list contribute their "name" key and are kept in Objects.
func classifyList(f *Field, items []any) {
	allObjects := len(items) > 0

	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			allObjects = false

			break
		}
	}

	if allObjects {
		f.Kind = FieldObjectList
		for _, item := range items {
			obj, _ := item.(map[string]any)
			f.Objects = append(f.Objects, obj)
			if name, ok := obj["name"].(string); ok {
				f.List = append(f.List, name)
			}
		}

		return
	}

	f.Kind = FieldList

	for _, item := range items {
		switch val := item.(type) {
		case nil:
			continue
		case string:
			f.List = append(f.List, val)
		case json.Number:
			f.List = append(f.List, val.String())
		case float64:
			f.List = append(f.List, strconv.FormatFloat(val, 'f', -1, 64))
		case map[string]any:
			f.Objects = append(f.Objects, val)
			if name, ok := val["name"].(string); ok {
				f.List = append(f.List, name)
			}
		default:
			f.Kind = FieldInvalid
			f.List = nil
			f.Objects = nil

			return
		}
	}
}
