// Package availability refreshes product stock levels, either through an
// external per-shop script or by reading the product pages directly.
package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Result is the stock level of one product url.
type Result struct {
	URL          string `json:"url"`
	Availability int    `json:"availability"`
}

// Checker looks up the stock of every url, calling report once per result
// as soon as it is known. report may be called from several goroutines.
type Checker interface {
	Check(ctx context.Context, urls []string, report func(Result)) error
}

// ParseLine reads one line of the checker output protocol: `<url> <count>`.
func ParseLine(line string) (Result, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Result{}, fmt.Errorf("expected `<url> <count>`, got %q", line)
	}
	count, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Result{}, fmt.Errorf("bad count in %q: %w", line, err)
	}
	return Result{URL: fields[0], Availability: int(count)}, nil
}

// FormatLine is the inverse of ParseLine.
func FormatLine(r Result) string {
	return fmt.Sprintf("%s %d", r.URL, r.Availability)
}
