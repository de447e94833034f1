package dbclient

import "strings"

// SanitizeQuery trims whitespace and any trailing statement terminators so
// the query can be embedded in a wrapper.
func SanitizeQuery(query string) string {
	q := strings.TrimSpace(query)
	for strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	}
	return q
}

// IsSelectQuery reports whether the statement starts with SELECT, which is
// the only shape we can safely wrap for pagination.
func IsSelectQuery(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

// IsReadQuery detects statements that return rows (SELECT, WITH, SHOW,
// DESCRIBE, EXPLAIN, PRAGMA). Anything else goes through Exec.
func IsReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

// ExtractOrderBy returns the trailing ORDER BY clause of a query, or ""
// when there is none. Best-effort: it finds the last occurrence, which is
// the top-level clause for the queries users paginate.
func ExtractOrderBy(query string) string {
	idx := lastOrderByIndex(query)
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(query[idx:])
}

// RemoveOrderBy strips the clause ExtractOrderBy would return, so it can
// be re-applied outside a subquery wrapper. Databases are free to ignore
// ORDER BY inside a derived table, which breaks pagination ordering.
func RemoveOrderBy(query string) string {
	idx := lastOrderByIndex(query)
	if idx == -1 {
		return query
	}
	return strings.TrimSpace(query[:idx])
}

func lastOrderByIndex(query string) int {
	return strings.LastIndex(strings.ToUpper(query), "ORDER BY")
}

// CalculateOffset converts a 1-based page number into a row offset.
// Page values below 1 are clamped to the first page.
func CalculateOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
