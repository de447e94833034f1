package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	"tabular/internal/domain"
)

// Execute runs one statement and shapes the result by statement kind:
//
//   - SELECT with a positive limit gets wrapped for server-side
//     pagination (count + limit/offset)
//   - other row-returning statements stream unmodified with a client-side
//     row cap, since wrapping SHOW/PRAGMA/EXPLAIN in a subquery is invalid
//   - everything else goes through Exec and reports affected rows
//
// A non-positive limit disables pagination and the row cap entirely.
// Cancellation flows through ctx; callers map context.Canceled to their
// own error type.
func Execute(ctx context.Context, db *sql.DB, driver domain.Driver, query string, limit, page int) (*domain.QueryResult, error) {
	q := SanitizeQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if page < 1 {
		page = 1
	}

	switch {
	case IsSelectQuery(q) && limit > 0:
		return executePaginated(ctx, db, driver, q, limit, page)
	case IsReadQuery(q):
		return executeStream(ctx, db, driver, q, limit)
	default:
		return executeWrite(ctx, db, q)
	}
}

// executePaginated wraps a SELECT in count and window subqueries. The
// user's ORDER BY is hoisted outside the data wrapper because engines may
// ignore ordering inside a derived table.
func executePaginated(ctx context.Context, db *sql.DB, driver domain.Driver, query string, limit, page int) (*domain.QueryResult, error) {
	total := countRows(ctx, db, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orderBy := ExtractOrderBy(query)
	stripped := RemoveOrderBy(query)
	offset := CalculateOffset(page, limit)

	paged := fmt.Sprintf("SELECT * FROM (%s) AS data_wrapper", stripped)
	if orderBy != "" {
		paged += " " + orderBy
	}
	paged += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	cols, rows, _, err := fetchRows(ctx, db, driver, paged, 0)
	if err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Columns:   cols,
		Rows:      rows,
		Truncated: total > int64(limit),
		Pagination: &domain.Pagination{
			Page:      page,
			PageSize:  limit,
			TotalRows: total,
		},
	}, nil
}

// countRows computes the total row count of the unpaged query. A failing
// count (e.g. a dialect quirk in the wrapper) degrades to 0 rather than
// failing the whole execution.
func countRows(ctx context.Context, db *sql.DB, query string) int64 {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS count_wrapper", query)
	var total int64
	if err := db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return 0
	}
	return total
}

// executeStream runs the statement as-is and caps the rows read.
func executeStream(ctx context.Context, db *sql.DB, driver domain.Driver, query string, limit int) (*domain.QueryResult, error) {
	cols, rows, truncated, err := fetchRows(ctx, db, driver, query, limit)
	if err != nil {
		return nil, err
	}
	return &domain.QueryResult{
		Columns:   cols,
		Rows:      rows,
		Truncated: truncated,
	}, nil
}

func executeWrite(ctx context.Context, db *sql.DB, query string) (*domain.QueryResult, error) {
	result, err := db.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	affected, _ := result.RowsAffected()
	return &domain.QueryResult{
		Columns:      []string{},
		Rows:         [][]any{},
		AffectedRows: affected,
	}, nil
}

// fetchRows runs a row-returning statement and decodes every cell with
// the dialect's value decoder. limit <= 0 reads the cursor to exhaustion;
// otherwise reading stops at limit rows and truncated reports whether the
// cursor had more.
func fetchRows(ctx context.Context, db *sql.DB, driver domain.Driver, query string, limit int) (cols []string, out [][]any, truncated bool, err error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, false, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err = rows.Columns()
	if err != nil {
		return nil, nil, false, fmt.Errorf("columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, false, fmt.Errorf("column types: %w", err)
	}

	decode := decoderFor(driver)
	out = make([][]any, 0)
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			truncated = true
			break
		}
		row, scanErr := scanRow(rows, colTypes, decode)
		if scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("iterate: %w", err)
	}
	return cols, out, truncated, nil
}
