package paginator

// DefaultPageSize is the number of paragraphs rendered per page when no size
// is configured.
const DefaultPageSize = 20

// PageOf returns the page that holds the paragraph at index i.
func PageOf(i, size int) int {
	if i < 0 || size <= 0 {
		return 0
	}
	return i / size
}

// RangeOf returns the half-open paragraph range [start, end) shown on page.
func RangeOf(page, size, total int) (int, int) {
	if size <= 0 || page < 0 {
		return 0, 0
	}
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages returns the number of pages needed for total paragraphs.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampPage returns page limited to the last existing page, or 0 when there
// are no pages.
func ClampPage(page, size, total int) int {
	last := TotalPages(total, size) - 1
	if last < 0 {
		last = 0
	}
	if page > last {
		return last
	}
	if page < 0 {
		return 0
	}
	return page
}
