// Package order sorts filtered row indices and slices them into pages.
package order

import (
	"math"
	"slices"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/formula"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Mode int

const (
	None Mode = iota
	ByColumn
	ByFormula
)

func (m Mode) String() string {
	switch m {
	case ByColumn:
		return "column"
	case ByFormula:
		return "formula"
	}
	return "none"
}

// Spec is the sort specification of a view. Column is a raw header name and
// is only read in ByColumn mode, Formula only in ByFormula mode.
type Spec struct {
	Mode       Mode
	Column     string
	Formula    *formula.Formula
	Descending bool
}

// DefaultLanguage is the collation used for string cells when the caller
// does not pick one.
var DefaultLanguage = language.Russian

// Sort returns `indices` reordered by `spec`. The sort is stable in every
// mode so equal keys keep their dataset order, None returns a copy of the
// input order.
func Sort(ds catalog.Dataset, indices []int, spec Spec, lang language.Tag) []int {
	out := slices.Clone(indices)
	if out == nil {
		out = []int{}
	}

	switch spec.Mode {
	case ByColumn:
		// collators keep internal buffers and are not safe to share
		collator := collate.New(lang)
		column := spec.Column
		slices.SortStableFunc(out, func(a, b int) int {
			c := compareCells(collator, ds.Rows[a][column], ds.Rows[b][column])
			if spec.Descending {
				return -c
			}
			return c
		})
	case ByFormula:
		if spec.Formula == nil {
			return out
		}
		keys := make(map[int]float64, len(out))
		for _, i := range out {
			keys[i] = FormulaKey(spec.Formula.Eval(ds.Rows[i]))
		}
		slices.SortStableFunc(out, func(a, b int) int {
			c := compareFloats(keys[a], keys[b])
			if spec.Descending {
				return -c
			}
			return c
		})
	}
	return out
}

// FormulaKey maps non-finite formula results to -Inf so they order below
// every real number.
func FormulaKey(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.Inf(-1)
	}
	return v
}

// compareCells orders numerically when both cells parse as numbers and by
// locale collation otherwise.
func compareCells(collator *collate.Collator, a, b string) int {
	x, aok := catalog.ParseNumber(a)
	y, bok := catalog.ParseNumber(b)
	if aok && bok {
		return compareFloats(x, y)
	}
	return collator.CompareString(a, b)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
