package filter

import (
	"errors"
	"fmt"
	"strings"

	"catalogdesk-backend/internal/catalog"
)

// ErrInvalid wraps every reason a filter is rejected before being applied.
var ErrInvalid = errors.New("invalid filter")

const (
	KindEquals = "equals"
	KindRange  = "range"
	KindText   = "text"
)

// Spec is the serializable form of a ColumnFilter.
type Spec struct {
	Kind     string   `json:"kind"`
	Value    *float64 `json:"value,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Contains []string `json:"contains,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Build validates the spec against the kind of the column it targets.
func (s Spec) Build(column catalog.ColumnKind) (ColumnFilter, error) {
	var f ColumnFilter
	switch s.Kind {
	case KindEquals:
		if s.Value == nil {
			return nil, invalid("equals filter needs a value")
		}
		f = Equals{Value: *s.Value}
	case KindRange:
		if s.Min == nil && s.Max == nil {
			return nil, invalid("range filter needs at least one bound")
		}
		if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
			return nil, invalid("range minimum %v is above maximum %v", *s.Min, *s.Max)
		}
		f = Range{Min: s.Min, Max: s.Max}
	case KindText:
		contains := nonBlank(s.Contains)
		exclude := nonBlank(s.Exclude)
		if len(contains) == 0 && len(exclude) == 0 {
			return nil, invalid("text filter needs at least one pattern")
		}
		f = Text{Contains: contains, Exclude: exclude}
	default:
		return nil, invalid("unknown filter kind %q", s.Kind)
	}

	if f.Kind() != column {
		return nil, invalid("%s filter cannot be applied to a %s column", s.Kind, column)
	}
	return f, nil
}

// Describe converts a ColumnFilter back into its Spec.
func Describe(f ColumnFilter) Spec {
	switch f := f.(type) {
	case Equals:
		v := f.Value
		return Spec{Kind: KindEquals, Value: &v}
	case Range:
		return Spec{Kind: KindRange, Min: f.Min, Max: f.Max}
	case Text:
		return Spec{Kind: KindText, Contains: f.Contains, Exclude: f.Exclude}
	}
	return Spec{}
}

// ParseExpr reads the compact filter syntax used on the command line.
//
// numeric columns: "10" (equals), "5..20", "5..", "..20" (range)
// string columns: comma separated patterns, a leading '!' excludes
func ParseExpr(column catalog.ColumnKind, expr string) (ColumnFilter, error) {
	expr = strings.TrimSpace(expr)
	if column == catalog.StringColumn {
		var spec Spec
		spec.Kind = KindText
		for _, p := range strings.Split(expr, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "!") {
				spec.Exclude = append(spec.Exclude, strings.TrimPrefix(p, "!"))
				continue
			}
			spec.Contains = append(spec.Contains, p)
		}
		return spec.Build(column)
	}

	lo, hi, isRange := strings.Cut(expr, "..")
	if !isRange {
		v, ok := catalog.ParseNumber(expr)
		if !ok {
			return nil, invalid("%q is not a number", expr)
		}
		return Spec{Kind: KindEquals, Value: &v}.Build(column)
	}

	spec := Spec{Kind: KindRange}
	if strings.TrimSpace(lo) != "" {
		v, ok := catalog.ParseNumber(lo)
		if !ok {
			return nil, invalid("%q is not a number", lo)
		}
		spec.Min = &v
	}
	if strings.TrimSpace(hi) != "" {
		v, ok := catalog.ParseNumber(hi)
		if !ok {
			return nil, invalid("%q is not a number", hi)
		}
		spec.Max = &v
	}
	return spec.Build(column)
}

func nonBlank(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
