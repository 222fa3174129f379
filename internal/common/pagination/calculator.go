package pagination

// CalculateTotalPages calculates the total number of pages based on total items and limit.
// Uses ceiling division to ensure all items are included.
//
// Special cases:
//   - If total is 0, returns 1 (the first, empty page still exists)
//   - If limit is not positive, returns 1 (everything came back on one page)
//   - Otherwise, returns ceil(total / limit)
//
// Examples:
//   - Total 0, Limit 20 -> 1 page
//   - Total 20, Limit 20 -> 1 page
//   - Total 21, Limit 20 -> 2 pages
func CalculateTotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	// Ceiling division: (total + limit - 1) / limit
	return int((total + int64(limit) - 1) / int64(limit))
}
