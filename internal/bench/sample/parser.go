package sample

import (
	"strconv"
	"strings"
)

// Layout describes how one sampling tool lays out its output. Columns are
// located by name from the most recent header row, never by position.
type Layout struct {
	// HeaderMarker is a column name that only appears in header rows.
	HeaderMarker string
	// LabelColumn, when set, names the column whose value prefixes every
	// metric of a data row (device name, CPU id, command).
	LabelColumn string
	// Ignore lists columns that are never emitted as metrics.
	Ignore []string
	// SkipPrefixes marks metadata rows such as trailing averages.
	SkipPrefixes []string
}

var defaultSkipPrefixes = []string{"Average:", "Linux"}

type Parser struct {
	layout  Layout
	ignore  map[string]bool
	columns []string
	label   int
}

func NewParser(layout Layout) *Parser {
	if layout.SkipPrefixes == nil {
		layout.SkipPrefixes = defaultSkipPrefixes
	}
	ignore := make(map[string]bool, len(layout.Ignore))
	for _, c := range layout.Ignore {
		ignore[c] = true
	}
	return &Parser{layout: layout, ignore: ignore, label: -1}
}

// Parse returns the metrics carried by line, or nil for header, metadata
// and malformed lines. A header line replaces the current column layout.
func (p *Parser) Parse(line string) map[string]float64 {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	for _, prefix := range p.layout.SkipPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return nil
		}
	}

	fields := tokenize(trimmed)
	if p.isHeader(fields) {
		p.setHeader(fields)
		return nil
	}
	if len(p.columns) == 0 || len(fields) != len(p.columns) {
		return nil
	}

	prefix := ""
	if p.label >= 0 {
		prefix = labelPrefix(p.layout.LabelColumn, fields[p.label])
	}

	metrics := make(map[string]float64, len(fields))
	for i, col := range p.columns {
		if i == p.label || p.ignore[col] {
			continue
		}
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			continue
		}
		metrics[prefix+col] = v
	}
	if len(metrics) == 0 {
		return nil
	}
	return metrics
}

func (p *Parser) Columns() []string {
	return p.columns
}

func (p *Parser) isHeader(fields []string) bool {
	for _, f := range fields {
		if f == p.layout.HeaderMarker {
			return true
		}
	}
	return false
}

func (p *Parser) setHeader(fields []string) {
	p.columns = fields
	p.label = -1
	if p.layout.LabelColumn == "" {
		return
	}
	for i, f := range fields {
		if f == p.layout.LabelColumn {
			p.label = i
			return
		}
	}
}

// tokenize splits on whitespace and drops comment markers, so "# Time UID"
// and "#Time UID" both yield [Time UID].
func tokenize(line string) []string {
	raw := strings.Fields(line)
	fields := raw[:0]
	for _, f := range raw {
		f = strings.TrimPrefix(f, "#")
		if f == "" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func labelPrefix(column, value string) string {
	if _, err := strconv.Atoi(value); err == nil {
		return strings.ToLower(column) + value + "."
	}
	return value + "."
}
