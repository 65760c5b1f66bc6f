// Package catalog holds the data model shared by every stage of the view
// pipeline: records, datasets and the static facts about known columns.
package catalog

import (
	"math"
	"strconv"
	"strings"

	"catalogdesk-backend/lib/textutil"
)

// Record is one row keyed by raw (non-normalized) column name.
type Record map[string]string

// Clone returns a copy of r that can be mutated freely.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is a header list plus the rows that share it.
type Dataset struct {
	Headers []string
	Rows    []Record
}

// Column finds the raw header whose normalized form equals the normalized
// form of `name`.
func (d Dataset) Column(name string) (string, bool) {
	return FindColumn(d.Headers, name)
}

// FindColumn resolves `name` against `headers`, an exact match wins over a
// normalized one.
func FindColumn(headers []string, name string) (string, bool) {
	for _, h := range headers {
		if h == name {
			return h, true
		}
	}
	want := textutil.NormalizeHeader(name)
	for _, h := range headers {
		if textutil.NormalizeHeader(h) == want {
			return h, true
		}
	}
	return "", false
}

const (
	// CategoryColumn holds the '#' delimited category path.
	CategoryColumn = "category"
	// URLColumn is the natural key of a product row.
	URLColumn = "url"
	// SentinelColumn carries SentinelValue when macros could not be computed.
	SentinelColumn = "calories"
	SentinelValue  = 100500
	// AvailabilityColumn and UpdatedColumn are written by availability refreshes.
	AvailabilityColumn = "availability"
	UpdatedColumn      = "last_upd_time"
)

// ColumnKind is the static type of a column.
type ColumnKind int

const (
	StringColumn ColumnKind = iota
	NumericColumn
)

func (k ColumnKind) String() string {
	if k == NumericColumn {
		return "number"
	}
	return "string"
}

var numericColumns = map[string]struct{}{
	"price":          {},
	"weight":         {},
	"calories":       {},
	"proteins":       {},
	"fats":           {},
	"carbohydrates":  {},
	"pri/we":         {},
	"pro/cal":        {},
	"availability":   {},
	"average_rating": {},
	"rating_count":   {},
}

// KindOf reports the kind of a column by its normalized name.
func KindOf(column string) ColumnKind {
	_, ok := numericColumns[textutil.NormalizeHeader(column)]
	if ok {
		return NumericColumn
	}
	return StringColumn
}

// ColumnKinds maps every raw header to its kind.
func ColumnKinds(headers []string) map[string]ColumnKind {
	out := make(map[string]ColumnKind, len(headers))
	for _, h := range headers {
		out[h] = KindOf(h)
	}
	return out
}

// ParseNumber interprets a cell as a float. Cells are trimmed and may use a
// decimal comma. Anything that is not a plain decimal literal (including
// "NaN", "Inf" and hex floats) reports false.
func ParseNumber(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	for _, c := range cell {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == ',', c == '+', c == '-', c == 'e', c == 'E':
		default:
			return 0, false
		}
	}
	cell = strings.ReplaceAll(cell, ",", ".")
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
