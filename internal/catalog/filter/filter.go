// Package filter narrows a dataset down to the rows matching the category
// selection, free-text search, sentinel rule and per-column filters.
package filter

import (
	"strings"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/category"
	"catalogdesk-backend/lib/textutil"
)

// ColumnFilter constrains the cells of a single column. The set of
// implementations is closed: Equals, Range and Text.
type ColumnFilter interface {
	// Kind is the column kind the filter applies to.
	Kind() catalog.ColumnKind
	match(cell string) bool
}

// Equals keeps cells parsing to exactly Value, there is no tolerance.
type Equals struct {
	Value float64
}

func (Equals) Kind() catalog.ColumnKind { return catalog.NumericColumn }

func (f Equals) match(cell string) bool {
	v, ok := catalog.ParseNumber(cell)
	return ok && v == f.Value
}

// Range keeps cells within [Min, Max], a nil bound is unconstrained.
type Range struct {
	Min *float64
	Max *float64
}

func (Range) Kind() catalog.ColumnKind { return catalog.NumericColumn }

func (f Range) match(cell string) bool {
	v, ok := catalog.ParseNumber(cell)
	if !ok {
		return false
	}
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// Text keeps cells containing every Contains pattern and none of the
// Exclude patterns. Patterns and cells are compared after FoldSearch.
type Text struct {
	Contains []string
	Exclude  []string
}

func (Text) Kind() catalog.ColumnKind { return catalog.StringColumn }

func (f Text) match(cell string) bool {
	cell = textutil.FoldSearch(cell)
	for _, p := range f.Contains {
		if !strings.Contains(cell, textutil.FoldSearch(p)) {
			return false
		}
	}
	for _, p := range f.Exclude {
		if strings.Contains(cell, textutil.FoldSearch(p)) {
			return false
		}
	}
	return true
}

// Params are the filtering inputs of one pipeline run.
type Params struct {
	// Categories is nil when the dataset has no category column.
	Categories *category.Selection
	Search     string
	// SearchColumns are the raw names of the currently visible columns.
	SearchColumns []string
	HideSentinel  bool
	// Columns maps raw column names to their filter.
	Columns map[string]ColumnFilter
}

// Apply returns the indices of the rows of `ds` that pass every stage, in
// dataset order. Stages run in a fixed order: category, search, sentinel,
// column filters.
func Apply(ds catalog.Dataset, p Params) []int {
	out := make([]int, 0, len(ds.Rows))
	for i := range ds.Rows {
		out = append(out, i)
	}

	if p.Categories != nil {
		if column, ok := ds.Column(catalog.CategoryColumn); ok {
			out = keep(ds, out, func(r catalog.Record) bool {
				return p.Categories.Contains(category.CanonicalPath(r[column]))
			})
		}
	}

	if p.Search != "" {
		query := textutil.FoldSearch(p.Search)
		out = keep(ds, out, func(r catalog.Record) bool {
			for _, c := range p.SearchColumns {
				if strings.Contains(textutil.FoldSearch(r[c]), query) {
					return true
				}
			}
			return false
		})
	}

	if p.HideSentinel {
		if column, ok := ds.Column(catalog.SentinelColumn); ok {
			out = keep(ds, out, func(r catalog.Record) bool {
				v, ok := catalog.ParseNumber(r[column])
				return !ok || v != catalog.SentinelValue
			})
		}
	}

	for column, f := range p.Columns {
		if f == nil {
			continue
		}
		out = keep(ds, out, func(r catalog.Record) bool {
			return f.match(r[column])
		})
	}

	return out
}

func keep(ds catalog.Dataset, indices []int, pred func(catalog.Record) bool) []int {
	out := indices[:0]
	for _, i := range indices {
		if pred(ds.Rows[i]) {
			out = append(out, i)
		}
	}
	return out
}
