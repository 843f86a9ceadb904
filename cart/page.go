package cart

// Page returns the 1-based page of items holding size entries, and the
// number of pages. Out-of-range pages are empty.
func Page[T any](items []T, page, size int) ([]T, int) {
	if size < 1 {
		size = 1
	}
	pages := (len(items) + size - 1) / size
	if page < 1 || page > pages {
		return []T{}, pages
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end], pages
}
