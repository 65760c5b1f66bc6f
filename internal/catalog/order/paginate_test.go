package order

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	cases := []struct {
		total, page, size int
		expected          Window
	}{
		{total: 0, page: 1, size: 10, expected: Window{Page: 1, Size: 10, Pages: 0, Start: 0, End: 0}},
		{total: 0, page: 5, size: 10, expected: Window{Page: 1, Size: 10, Pages: 0, Start: 0, End: 0}},
		{total: 25, page: 1, size: 10, expected: Window{Page: 1, Size: 10, Pages: 3, Start: 0, End: 10}},
		{total: 25, page: 3, size: 10, expected: Window{Page: 3, Size: 10, Pages: 3, Start: 20, End: 25}},
		{total: 25, page: 9, size: 10, expected: Window{Page: 3, Size: 10, Pages: 3, Start: 20, End: 25}},
		{total: 25, page: -2, size: 10, expected: Window{Page: 1, Size: 10, Pages: 3, Start: 0, End: 10}},
		{total: 20, page: 2, size: 10, expected: Window{Page: 2, Size: 10, Pages: 2, Start: 10, End: 20}},
		{total: 3, page: 1, size: 0, expected: Window{Page: 1, Size: 1, Pages: 3, Start: 0, End: 1}},
	}

	for _, test := range cases {
		diff := cmp.Diff(test.expected, Paginate(test.total, test.page, test.size))
		if diff != "" {
			t.Fatalf("total=%d page=%d size=%d: %s", test.total, test.page, test.size, diff)
		}
	}
}

func TestPaginationCoverage(t *testing.T) {
	for total := 0; total <= 23; total++ {
		sorted := make([]int, total)
		for i := range sorted {
			sorted[i] = i * 7
		}
		for _, size := range []int{1, 4, 5, 10, 50} {
			first := Paginate(total, 1, size)

			var joined []int
			for page := 1; page <= first.Pages; page++ {
				w := Paginate(total, page, size)
				require.Equal(t, page, w.Page)
				chunk := w.Slice(sorted)
				require.LessOrEqual(t, len(chunk), size)
				if page < first.Pages {
					require.Len(t, chunk, size)
				}
				joined = append(joined, chunk...)
			}

			if total == 0 {
				require.Empty(t, joined)
				require.Empty(t, first.Slice(sorted))
				continue
			}
			require.Equal(t, sorted, joined, "total=%d size=%d", total, size)
		}
	}
}
