package filter

import (
	"errors"
	"testing"

	"catalogdesk-backend/internal/catalog"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSpecBuild(t *testing.T) {
	cases := []struct {
		spec     Spec
		column   catalog.ColumnKind
		expected ColumnFilter
		invalid  bool
	}{
		{
			spec:     Spec{Kind: KindEquals, Value: float(10)},
			column:   catalog.NumericColumn,
			expected: Equals{Value: 10},
		},
		{
			spec:     Spec{Kind: KindRange, Max: float(3)},
			column:   catalog.NumericColumn,
			expected: Range{Max: float(3)},
		},
		{
			spec:     Spec{Kind: KindText, Contains: []string{"a", " "}, Exclude: []string{"b"}},
			column:   catalog.StringColumn,
			expected: Text{Contains: []string{"a"}, Exclude: []string{"b"}},
		},
		{spec: Spec{Kind: KindEquals}, column: catalog.NumericColumn, invalid: true},
		{spec: Spec{Kind: KindRange}, column: catalog.NumericColumn, invalid: true},
		{spec: Spec{Kind: KindRange, Min: float(5), Max: float(1)}, column: catalog.NumericColumn, invalid: true},
		{spec: Spec{Kind: KindText, Contains: []string{""}}, column: catalog.StringColumn, invalid: true},
		{spec: Spec{Kind: KindText, Contains: []string{"a"}}, column: catalog.NumericColumn, invalid: true},
		{spec: Spec{Kind: KindEquals, Value: float(1)}, column: catalog.StringColumn, invalid: true},
		{spec: Spec{Kind: "regex"}, column: catalog.StringColumn, invalid: true},
	}

	for _, test := range cases {
		f, err := test.spec.Build(test.column)
		if test.invalid {
			require.True(t, errors.Is(err, ErrInvalid), "spec %+v", test.spec)
			continue
		}
		require.NoError(t, err)
		diff := cmp.Diff(test.expected, f)
		if diff != "" {
			t.Fatal(diff)
		}
		require.Equal(t, test.spec.Kind, Describe(f).Kind)
	}
}

func TestParseExpr(t *testing.T) {
	cases := []struct {
		column   catalog.ColumnKind
		expr     string
		expected ColumnFilter
		invalid  bool
	}{
		{column: catalog.NumericColumn, expr: "10", expected: Equals{Value: 10}},
		{column: catalog.NumericColumn, expr: "5..20", expected: Range{Min: float(5), Max: float(20)}},
		{column: catalog.NumericColumn, expr: "5..", expected: Range{Min: float(5)}},
		{column: catalog.NumericColumn, expr: "..2,5", expected: Range{Max: float(2.5)}},
		{column: catalog.StringColumn, expr: "soup, !fish", expected: Text{Contains: []string{"soup"}, Exclude: []string{"fish"}}},
		{column: catalog.NumericColumn, expr: "ten", invalid: true},
		{column: catalog.NumericColumn, expr: "1..x", invalid: true},
		{column: catalog.NumericColumn, expr: "..", invalid: true},
		{column: catalog.StringColumn, expr: " , ", invalid: true},
	}

	for _, test := range cases {
		f, err := ParseExpr(test.column, test.expr)
		if test.invalid {
			require.ErrorIs(t, err, ErrInvalid, "expr %q", test.expr)
			continue
		}
		require.NoError(t, err, "expr %q", test.expr)
		diff := cmp.Diff(test.expected, f)
		if diff != "" {
			t.Fatalf("expr %q: %s", test.expr, diff)
		}
	}
}
