package export_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabular/internal/domain"
	"tabular/internal/export"
)

func sampleResult() *domain.QueryResult {
	return &domain.QueryResult{
		Columns: []string{"id", "name", "score", "deleted_at"},
		Rows: [][]any{
			{int64(1), "alice", 1.5, nil},
			{int64(2), "bob, jr.", 2.0, "2024-01-01 00:00:00"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "id,name,score,deleted_at" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1,alice,1.5," {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Commas inside values must be quoted.
	if !strings.Contains(lines[2], `"bob, jr."`) {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d objects, want 2", len(out))
	}
	if out[0]["name"] != "alice" {
		t.Errorf("name = %v", out[0]["name"])
	}
	if out[0]["deleted_at"] != nil {
		t.Errorf("NULL should marshal as JSON null, got %v", out[0]["deleted_at"])
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := export.WriteFile(path, export.FormatCSV, sampleResult()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,name,score,deleted_at") {
		t.Errorf("file content = %q", data)
	}
}

func TestWriteFile_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	if err := export.WriteFile(path, "parquet", sampleResult()); err == nil {
		t.Fatal("unknown format should error")
	}
}
