package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"tabular/internal/domain"
)

// quoteIdentFor quotes an identifier in the dialect's own style.
func quoteIdentFor(driver domain.Driver, name string) string {
	if driver == domain.DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return quoteIdent(name)
}

// placeholder returns the dialect's bind marker for the nth parameter,
// counting from 1.
func placeholder(driver domain.Driver, n int) string {
	if driver == domain.DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// InsertRecord inserts one row from column name to value pairs and returns
// the affected row count. An empty map inserts defaults only, for tables
// whose columns all auto-generate.
func InsertRecord(ctx context.Context, db *sql.DB, driver domain.Driver, table string, data map[string]any) (int64, error) {
	if len(data) == 0 {
		var stmt string
		if driver == domain.DriverMySQL {
			stmt = fmt.Sprintf("INSERT INTO %s () VALUES ()", quoteIdentFor(driver, table))
		} else {
			stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdentFor(driver, table))
		}
		res, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		return res.RowsAffected()
	}

	// Map iteration order is random; sort for a stable statement.
	cols := make([]string, 0, len(data))
	for col := range data {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentFor(driver, col)
		marks[i] = placeholder(driver, i+1)
		args[i] = data[col]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentFor(driver, table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return res.RowsAffected()
}

// UpdateRecord sets one column of the row identified by its primary key.
func UpdateRecord(ctx context.Context, db *sql.DB, driver domain.Driver, table, pkCol string, pkVal any, column string, value any) (int64, error) {
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		quoteIdentFor(driver, table),
		quoteIdentFor(driver, column), placeholder(driver, 1),
		quoteIdentFor(driver, pkCol), placeholder(driver, 2))
	res, err := db.ExecContext(ctx, stmt, value, pkVal)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// DeleteRecord removes the row identified by its primary key.
func DeleteRecord(ctx context.Context, db *sql.DB, driver domain.Driver, table, pkCol string, pkVal any) (int64, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quoteIdentFor(driver, table),
		quoteIdentFor(driver, pkCol), placeholder(driver, 1))
	res, err := db.ExecContext(ctx, stmt, pkVal)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}
