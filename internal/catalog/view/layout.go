package view

import (
	"fmt"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/lib/textutil"
)

var (
	alwaysHidden = []string{"imgUrl"}
	shownByDefault = []string{
		"name", "price", "weight", "calories", "proteins", "fats",
		"carbohydrates", "pri/we", "pro/cal", "availability",
		"average_rating", "category",
	}
	hiddenByDefault = []string{
		"url", "content", "description", "rating_count", "last_upd_time",
	}
)

// Column is one entry of a Layout, Name is the raw header.
type Column struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// Layout is the display order of the columns with their visibility.
// Always hidden columns never appear in a layout.
type Layout []Column

func isAlwaysHidden(header string) bool {
	for _, h := range alwaysHidden {
		if textutil.NormalizeHeader(header) == h {
			return true
		}
	}
	return false
}

// DefaultLayout orders `headers` by bucket: the shown by default columns in
// their fixed order, the hidden by default columns, then everything else in
// dataset order and visible.
func DefaultLayout(headers []string) Layout {
	out := Layout{}
	placed := map[string]struct{}{}
	place := func(raw string, visible bool) {
		out = append(out, Column{Name: raw, Visible: visible})
		placed[raw] = struct{}{}
	}

	for _, name := range shownByDefault {
		raw, ok := catalog.FindColumn(headers, name)
		if ok {
			place(raw, true)
		}
	}
	for _, name := range hiddenByDefault {
		raw, ok := catalog.FindColumn(headers, name)
		if ok {
			place(raw, false)
		}
	}
	for _, h := range headers {
		if _, ok := placed[h]; ok || isAlwaysHidden(h) {
			continue
		}
		place(h, true)
	}
	return out
}

// Visible lists the visible columns in display order.
func (l Layout) Visible() []string {
	out := []string{}
	for _, c := range l {
		if c.Visible {
			out = append(out, c.Name)
		}
	}
	return out
}

// Reconcile drops columns that are gone from `headers` and appends new
// headers the way DefaultLayout would place them.
func (l Layout) Reconcile(headers []string) Layout {
	present := map[string]struct{}{}
	for _, h := range headers {
		present[h] = struct{}{}
	}
	out := Layout{}
	known := map[string]struct{}{}
	for _, c := range l {
		if _, ok := present[c.Name]; ok {
			out = append(out, c)
			known[c.Name] = struct{}{}
		}
	}
	for _, c := range DefaultLayout(headers) {
		if _, ok := known[c.Name]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// resolveLayout validates a layout requested by the operator. Names may be
// given in normalized form, headers left out are appended hidden.
func resolveLayout(headers []string, requested Layout) (Layout, error) {
	out := Layout{}
	seen := map[string]struct{}{}
	for _, c := range requested {
		raw, ok := catalog.FindColumn(headers, c.Name)
		if !ok || isAlwaysHidden(raw) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c.Name)
		}
		if _, dup := seen[raw]; dup {
			return nil, fmt.Errorf("%w: column %q listed twice", ErrInvalidParam, c.Name)
		}
		seen[raw] = struct{}{}
		out = append(out, Column{Name: raw, Visible: c.Visible})
	}
	for _, h := range headers {
		if _, ok := seen[h]; ok || isAlwaysHidden(h) {
			continue
		}
		out = append(out, Column{Name: h, Visible: false})
	}
	return out, nil
}
