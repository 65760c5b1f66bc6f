package order

// Window is one page of a sorted result.
type Window struct {
	// Page is the 1-based page after clamping.
	Page  int
	Size  int
	Pages int
	// Start and End bound the page within the sorted sequence, End is
	// exclusive.
	Start int
	End   int
}

// Paginate clamps `page` into [1, pages] and returns the slice bounds of
// that page. An empty result has 0 pages and an empty window on page 1.
func Paginate(total, page, size int) Window {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	pages := (total + size - 1) / size
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return Window{
		Page:  page,
		Size:  size,
		Pages: pages,
		Start: start,
		End:   end,
	}
}

// Slice applies the window to a sorted sequence.
func (w Window) Slice(sorted []int) []int {
	if w.Start >= len(sorted) {
		return []int{}
	}
	end := w.End
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[w.Start:end]
}
