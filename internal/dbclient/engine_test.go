package dbclient_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"tabular/internal/dbclient"
	"tabular/internal/domain"

	_ "modernc.org/sqlite"
)

// newTestDB opens an in-memory SQLite database seeded with 120 rows.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	// The in-memory database vanishes if its only connection closes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, score REAL)`); err != nil {
		t.Fatal(err)
	}
	stmt, err := db.Prepare(`INSERT INTO items (name, score) VALUES (?, ?)`)
	if err != nil {
		t.Fatal(err)
	}
	defer stmt.Close()
	for i := 1; i <= 120; i++ {
		if _, err := stmt.Exec(fmt.Sprintf("item-%03d", i), float64(i)/2); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestExecute_PaginatedSelect(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"SELECT id, name FROM items ORDER BY id", 50, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 50 {
		t.Errorf("page 1 has %d rows, want 50", len(res.Rows))
	}
	if res.Pagination == nil {
		t.Fatal("missing pagination")
	}
	if res.Pagination.TotalRows != 120 {
		t.Errorf("TotalRows = %d, want 120", res.Pagination.TotalRows)
	}
	if !res.Truncated {
		t.Error("120 rows with limit 50 should report truncated")
	}
	if res.Rows[0][0] != int64(1) {
		t.Errorf("first row id = %v, want 1", res.Rows[0][0])
	}
}

func TestExecute_SecondPageOffset(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"SELECT id FROM items ORDER BY id", 50, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 20 {
		t.Errorf("page 3 has %d rows, want 20", len(res.Rows))
	}
	if res.Rows[0][0] != int64(101) {
		t.Errorf("page 3 starts at id %v, want 101", res.Rows[0][0])
	}
}

func TestExecute_OrderByPreservedAcrossWrapper(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"SELECT id FROM items ORDER BY id DESC", 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows[0][0] != int64(120) {
		t.Errorf("descending order lost: first id = %v, want 120", res.Rows[0][0])
	}
}

func TestExecute_TrailingSemicolon(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"SELECT id FROM items ORDER BY id;", 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 10 {
		t.Errorf("got %d rows, want 10", len(res.Rows))
	}
}

func TestExecute_Write(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"UPDATE items SET score = 0 WHERE id <= 10", 50, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.AffectedRows != 10 {
		t.Errorf("AffectedRows = %d, want 10", res.AffectedRows)
	}
	if res.Truncated {
		t.Error("writes are never truncated")
	}
	if res.Pagination != nil {
		t.Error("writes carry no pagination")
	}
}

func TestExecute_StreamedRead(t *testing.T) {
	db := newTestDB(t)

	// PRAGMA cannot be wrapped in a subquery, so it takes the stream path.
	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"PRAGMA table_info(items)", 50, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Errorf("table_info returned %d rows, want 3", len(res.Rows))
	}
	if res.Truncated {
		t.Error("3 columns under a 50 row cap should not truncate")
	}
	if res.Pagination != nil {
		t.Error("streamed reads carry no pagination")
	}
}

func TestExecute_StreamCapTruncates(t *testing.T) {
	db := newTestDB(t)

	// WITH is a read but not a leading SELECT, so it streams with a cap.
	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"WITH all_items AS (SELECT * FROM items) SELECT id FROM all_items", 30, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 30 {
		t.Errorf("got %d rows, want capped 30", len(res.Rows))
	}
	if !res.Truncated {
		t.Error("cap hit should report truncated")
	}
}

func TestExecute_NoLimitStreamsEverything(t *testing.T) {
	db := newTestDB(t)

	res, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite,
		"SELECT id FROM items ORDER BY id", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 120 {
		t.Errorf("got %d rows, want all 120", len(res.Rows))
	}
	if res.Truncated {
		t.Error("full stream should not be truncated")
	}
	if res.Pagination != nil {
		t.Error("no limit means no pagination metadata")
	}
}

func TestExecute_Cancelled(t *testing.T) {
	db := newTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dbclient.Execute(ctx, db, domain.DriverSQLite,
		"SELECT id FROM items", 50, 1)
	if err == nil {
		t.Fatal("cancelled context should fail")
	}
}

func TestExecute_EmptyQuery(t *testing.T) {
	db := newTestDB(t)
	if _, err := dbclient.Execute(context.Background(), db, domain.DriverSQLite, "  ; ", 50, 1); err == nil {
		t.Fatal("empty query should error")
	}
}

func TestListTables_SQLite(t *testing.T) {
	db := newTestDB(t)

	tables, err := dbclient.ListTables(context.Background(), db, domain.DriverSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Name != "items" {
		t.Errorf("tables = %+v, want [items]", tables)
	}
}

func TestTableColumns_SQLite(t *testing.T) {
	db := newTestDB(t)

	cols, err := dbclient.TableColumns(context.Background(), db, domain.DriverSQLite, "items")
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}
	if !cols[0].IsPK || !cols[0].IsAutoIncrement {
		t.Errorf("id column flags = %+v", cols[0])
	}
	if cols[1].Name != "name" || !cols[1].IsNullable {
		t.Errorf("name column = %+v", cols[1])
	}
}

func TestListDatabases_SQLiteIsEmpty(t *testing.T) {
	db := newTestDB(t)

	names, err := dbclient.ListDatabases(context.Background(), db, domain.DriverSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("databases = %v, want none for a file-backed engine", names)
	}
}

func TestForeignKeys_SQLite(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		item_id INTEGER REFERENCES items(id) ON DELETE CASCADE ON UPDATE RESTRICT
	)`); err != nil {
		t.Fatal(err)
	}

	fks, err := dbclient.ForeignKeys(context.Background(), db, domain.DriverSQLite, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(fks) != 1 {
		t.Fatalf("got %d foreign keys, want 1", len(fks))
	}
	fk := fks[0]
	if fk.ColumnName != "item_id" || fk.RefTable != "items" || fk.RefColumn != "id" {
		t.Errorf("fk = %+v", fk)
	}
	if fk.OnDelete != "CASCADE" {
		t.Errorf("on delete = %q, want CASCADE", fk.OnDelete)
	}
	if fk.Name == "" {
		t.Error("synthesized fk name is empty")
	}
}

func TestIndexes_SQLite(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Exec(`CREATE UNIQUE INDEX idx_items_name ON items(name)`); err != nil {
		t.Fatal(err)
	}

	indexes, err := dbclient.Indexes(context.Background(), db, domain.DriverSQLite, "items")
	if err != nil {
		t.Fatal(err)
	}
	if len(indexes) != 1 {
		t.Fatalf("got %d index entries, want 1", len(indexes))
	}
	idx := indexes[0]
	if idx.Name != "idx_items_name" || idx.ColumnName != "name" {
		t.Errorf("index = %+v", idx)
	}
	if !idx.IsUnique || idx.IsPrimary {
		t.Errorf("index flags = %+v", idx)
	}
}

func TestInsertRecord(t *testing.T) {
	db := newTestDB(t)

	n, err := dbclient.InsertRecord(context.Background(), db, domain.DriverSQLite, "items",
		map[string]any{"name": "inserted", "score": 9.5})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}

	var score float64
	if err := db.QueryRow(`SELECT score FROM items WHERE name = 'inserted'`).Scan(&score); err != nil {
		t.Fatal(err)
	}
	if score != 9.5 {
		t.Errorf("score = %v, want 9.5", score)
	}
}

func TestInsertRecord_EmptyDataUsesDefaults(t *testing.T) {
	db := newTestDB(t)

	n, err := dbclient.InsertRecord(context.Background(), db, domain.DriverSQLite, "items", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
}

func TestUpdateRecord(t *testing.T) {
	db := newTestDB(t)

	n, err := dbclient.UpdateRecord(context.Background(), db, domain.DriverSQLite,
		"items", "id", 1, "name", "renamed")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM items WHERE id = 1`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "renamed" {
		t.Errorf("name = %q, want renamed", name)
	}
}

func TestDeleteRecord(t *testing.T) {
	db := newTestDB(t)

	n, err := dbclient.DeleteRecord(context.Background(), db, domain.DriverSQLite, "items", "id", 120)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 119 {
		t.Errorf("count = %d, want 119", count)
	}
}
