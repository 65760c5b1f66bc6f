package rowstore

import (
	"fmt"
	"strings"
)

// RowKey addresses a row either by its position in the file or by its
// product url. URL wins when both are set.
type RowKey struct {
	Index int    `json:"index"`
	URL   string `json:"url,omitempty"`
}

func ByIndex(i int) RowKey {
	return RowKey{Index: i}
}

func ByURL(u string) RowKey {
	return RowKey{URL: u}
}

func (k RowKey) String() string {
	if k.URL != "" {
		return fmt.Sprintf("url %s", CanonicalURL(k.URL))
	}
	return fmt.Sprintf("row %d", k.Index)
}

// CanonicalURL strips the query string, fragment and trailing slashes so
// that links copied from a browser still address the same product.
func CanonicalURL(raw string) string {
	u := strings.TrimSpace(raw)
	u, _, _ = strings.Cut(u, "#")
	u, _, _ = strings.Cut(u, "?")
	return strings.TrimRight(u, "/")
}
