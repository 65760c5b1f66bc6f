package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in    string
		value float64
		ok    bool
	}{
		{in: "10", value: 10, ok: true},
		{in: "10.00", value: 10, ok: true},
		{in: " 10.5 ", value: 10.5, ok: true},
		{in: "10,5", value: 10.5, ok: true},
		{in: "-3", value: -3, ok: true},
		{in: "1e3", value: 1000, ok: true},
		{in: "\u00a042\u00a0", value: 42, ok: true},
		{in: "", ok: false},
		{in: "x", ok: false},
		{in: "NaN", ok: false},
		{in: "Inf", ok: false},
		{in: "0x10", ok: false},
		{in: "10 руб", ok: false},
		{in: "1.2.3", ok: false},
		{in: "1e999", ok: false},
	}
	for _, test := range cases {
		v, ok := ParseNumber(test.in)
		require.Equal(t, test.ok, ok, "input %q", test.in)
		if test.ok {
			require.Equal(t, test.value, v, "input %q", test.in)
		}
	}
}

func TestKindOf(t *testing.T) {
	require.Equal(t, NumericColumn, KindOf("price"))
	require.Equal(t, NumericColumn, KindOf("\ufeffprice "))
	require.Equal(t, NumericColumn, KindOf("pri/we"))
	require.Equal(t, StringColumn, KindOf("name"))
	require.Equal(t, StringColumn, KindOf("Price"))

	kinds := ColumnKinds([]string{"\ufeffurl", "calories"})
	require.Equal(t, map[string]ColumnKind{
		"\ufeffurl": StringColumn,
		"calories":  NumericColumn,
	}, kinds)
}

func TestFindColumn(t *testing.T) {
	headers := []string{"\ufeffurl", "name", " price"}

	raw, ok := FindColumn(headers, "url")
	require.True(t, ok)
	require.Equal(t, "\ufeffurl", raw)

	raw, ok = FindColumn(headers, " price")
	require.True(t, ok)
	require.Equal(t, " price", raw)

	raw, ok = FindColumn(headers, "price")
	require.True(t, ok)
	require.Equal(t, " price", raw)

	_, ok = FindColumn(headers, "weight")
	require.False(t, ok)
}

func TestRecordClone(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	require.Equal(t, "1", r["a"])
}
