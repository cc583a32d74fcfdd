// Package report renders pipeline summaries as aligned plain-text tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"supplychain/pkg/utils"
)

const (
	minColumnWidth = 3
	maxCellWidth   = 48
)

var helper = utils.NewStringHelper()

// Align is a column alignment.
type Align int

// Alignments.
const (
	AlignLeft Align = iota
	AlignRight
)

// Table is a titled grid of text cells.
type Table struct {
	Title   string
	Headers []string
	Align   []Align
	Rows    [][]string
	Footer  []string
}

// NewTable creates a table with left-aligned columns.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers, Align: make([]Align, len(headers))}
}

// RightAlign marks the given columns as numeric.
func (t *Table) RightAlign(cols ...int) *Table {
	for _, c := range cols {
		if c < len(t.Align) {
			t.Align[c] = AlignRight
		}
	}

	return t
}

// Add appends a row. Cells are formatted with %v and cut to a readable width.
func (t *Table) Add(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = helper.TruncateString(helper.NormalizeWhitespace(fmt.Sprint(c)), maxCellWidth)
	}

	t.Rows = append(t.Rows, row)
}

// SetFooter sets a totals row printed under a separator.
func (t *Table) SetFooter(cells ...any) {
	t.Footer = make([]string, len(cells))
	for i, c := range cells {
		t.Footer[i] = fmt.Sprint(c)
	}
}

// String renders the table as a pipe-delimited grid with display-width padding.
func (t *Table) String() string {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}

	widths := make([]int, cols)

	measure := func(row []string) {
		for i := 0; i < len(row) && i < cols; i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	measure(t.Headers)
	measure(t.Footer)

	for _, row := range t.Rows {
		measure(row)
	}

	for i := range widths {
		widths[i] = max(widths[i], minColumnWidth)
	}

	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(t.Title)
		sb.WriteString("\n")
	}

	t.writeRow(&sb, t.Headers, widths)
	writeSeparator(&sb, widths)

	for _, row := range t.Rows {
		t.writeRow(&sb, row, widths)
	}

	if len(t.Footer) > 0 {
		writeSeparator(&sb, widths)
		t.writeRow(&sb, t.Footer, widths)
	}

	return sb.String()
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	_, err := io.WriteString(w, t.String())

	return err
}

func (t *Table) writeRow(sb *strings.Builder, row []string, widths []int) {
	sb.WriteString("|")

	for j, width := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		padding := width - runewidth.StringWidth(content)

		sb.WriteString(" ")

		if j < len(t.Align) && t.Align[j] == AlignRight {
			sb.WriteString(strings.Repeat(" ", padding))
			sb.WriteString(content)
		} else {
			sb.WriteString(helper.PadRight(content, width))
		}

		sb.WriteString(" |")
	}

	sb.WriteString("\n")
}

func writeSeparator(sb *strings.Builder, widths []int) {
	sb.WriteString("|")

	for _, width := range widths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", width))
		sb.WriteString(" |")
	}

	sb.WriteString("\n")
}
