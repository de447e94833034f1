package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"tabular/internal/domain"
)

// Format selects the output encoding for WriteFile.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// WriteFile dumps a query result to path in the given format.
func WriteFile(path string, format Format, result *domain.QueryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = WriteCSV(f, result)
	case FormatJSON:
		err = WriteJSON(f, result)
	default:
		err = fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV renders the result as RFC 4180 CSV with a header row.
func WriteCSV(w io.Writer, result *domain.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the result as an array of column→value objects.
func WriteJSON(w io.Writer, result *domain.QueryResult) error {
	out := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		obj := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			obj[col] = row[i]
		}
		out = append(out, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// cellString renders one already-decoded cell for CSV. NULL becomes the
// empty string.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
