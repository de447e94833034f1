package dbclient_test

import (
	"testing"

	"tabular/internal/dbclient"
)

func TestSanitizeQuery(t *testing.T) {
	cases := []struct{ in, want string }{
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1;  ", "SELECT 1"},
		{"SELECT 1;;", "SELECT 1"},
		{"SELECT 1 ; ", "SELECT 1"},
	}
	for _, c := range cases {
		if got := dbclient.SanitizeQuery(c.in); got != c.want {
			t.Errorf("SanitizeQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsSelectQuery(t *testing.T) {
	if !dbclient.IsSelectQuery("  select * from t") {
		t.Error("lowercase select not detected")
	}
	if dbclient.IsSelectQuery("WITH cte AS (SELECT 1) SELECT * FROM cte") {
		t.Error("WITH should not count as a plain SELECT")
	}
	if dbclient.IsSelectQuery("UPDATE t SET x = 1") {
		t.Error("UPDATE misdetected as SELECT")
	}
}

func TestIsReadQuery(t *testing.T) {
	reads := []string{
		"SELECT 1",
		"with cte as (select 1) select * from cte",
		"SHOW TABLES",
		"DESCRIBE users",
		"EXPLAIN SELECT 1",
		"PRAGMA table_info(users)",
	}
	for _, q := range reads {
		if !dbclient.IsReadQuery(q) {
			t.Errorf("IsReadQuery(%q) = false, want true", q)
		}
	}
	writes := []string{"INSERT INTO t VALUES (1)", "UPDATE t SET x=1", "DELETE FROM t", "CREATE TABLE t (id int)"}
	for _, q := range writes {
		if dbclient.IsReadQuery(q) {
			t.Errorf("IsReadQuery(%q) = true, want false", q)
		}
	}
}

func TestOrderByRoundTrip(t *testing.T) {
	query := "SELECT id, name FROM users WHERE active = 1 ORDER BY name DESC"
	orderBy := dbclient.ExtractOrderBy(query)
	stripped := dbclient.RemoveOrderBy(query)

	if orderBy != "ORDER BY name DESC" {
		t.Errorf("ExtractOrderBy = %q", orderBy)
	}
	if stripped != "SELECT id, name FROM users WHERE active = 1" {
		t.Errorf("RemoveOrderBy = %q", stripped)
	}
	if got := stripped + " " + orderBy; got != query {
		t.Errorf("round trip lost content: %q", got)
	}
}

func TestOrderBy_CaseInsensitive(t *testing.T) {
	query := "select * from t order by 1"
	if got := dbclient.ExtractOrderBy(query); got != "order by 1" {
		t.Errorf("ExtractOrderBy = %q", got)
	}
	if got := dbclient.RemoveOrderBy(query); got != "select * from t" {
		t.Errorf("RemoveOrderBy = %q", got)
	}
}

func TestOrderBy_Absent(t *testing.T) {
	query := "SELECT * FROM t"
	if got := dbclient.ExtractOrderBy(query); got != "" {
		t.Errorf("ExtractOrderBy = %q, want empty", got)
	}
	if got := dbclient.RemoveOrderBy(query); got != query {
		t.Errorf("RemoveOrderBy changed a query without ORDER BY: %q", got)
	}
}

func TestCalculateOffset(t *testing.T) {
	cases := []struct{ page, limit, want int }{
		{1, 100, 0},
		{3, 50, 100},
		{2, 25, 25},
		{0, 100, 0},  // clamped to first page
		{-5, 10, 0},  // clamped to first page
	}
	for _, c := range cases {
		if got := dbclient.CalculateOffset(c.page, c.limit); got != c.want {
			t.Errorf("CalculateOffset(%d, %d) = %d, want %d", c.page, c.limit, got, c.want)
		}
	}
}
