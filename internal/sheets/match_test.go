package sheets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestLinkHeaders(t *testing.T) {
	testCases := []struct {
		dest   []string
		source []string
		// if headerLink.Correlation == 0
		// the test will not assert the correlation to be equal
		expected []headerLink
	}{
		{
			dest:   []string{"Name", "Price", "Notes"},
			source: []string{"\ufeffname", "price"},
			expected: []headerLink{
				{Dest: 0, Source: 0, Correlation: 1},
				{Dest: 1, Source: 1, Correlation: 1},
			},
		},
		{
			dest:   []string{"proteins", "carbohydrate", "url"},
			source: []string{"url", "carbohydrates", "proteins"},
			expected: []headerLink{
				{Dest: 0, Source: 2, Correlation: 1},
				{Dest: 2, Source: 0, Correlation: 1},
				{Dest: 1, Source: 1},
			},
		},
		{
			dest:     []string{"weight"},
			source:   []string{"description"},
			expected: nil,
		},
		{
			dest:     []string{},
			source:   []string{"a"},
			expected: nil,
		},
	}

	for _, test := range testCases {
		links := linkHeaders(test.dest, test.source)
		diff := cmp.Diff(
			test.expected,
			links,
			cmpopts.SortSlices(func(a, b headerLink) bool {
				return a.Dest < b.Dest
			}),
			cmpopts.IgnoreFields(headerLink{}, "Correlation"),
		)
		if diff != "" {
			t.Fatal(diff)
		}
		for _, l := range links {
			require.GreaterOrEqual(t, l.Correlation, MatchThreshold)
		}
	}
}

func TestArrange(t *testing.T) {
	row, mapped := arrange(
		[]string{"url", "Title", "name", "price"},
		[]string{"name", "price", "url", "calories"},
		[]string{"Oats", "120", "https://s.example/1", "360"},
	)
	require.Equal(t, []string{"https://s.example/1", "", "Oats", "120"}, row)
	require.Equal(t, 3, mapped)
}
