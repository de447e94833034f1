package dbclient

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"tabular/internal/domain"
)

// datetimeFormat is how temporal values are rendered for display.
const datetimeFormat = "2006-01-02 15:04:05"

// valueDecoder converts one driver-native cell value into a JSON-safe
// value. Each dialect gets its own decoder because the drivers disagree
// on how they surface decimals, temporals, and binary data.
type valueDecoder func(colType *sql.ColumnType, v any) any

func decoderFor(driver domain.Driver) valueDecoder {
	switch driver {
	case domain.DriverPostgres:
		return decodePostgresValue
	case domain.DriverMySQL:
		return decodeMySQLValue
	default:
		return decodeSQLiteValue
	}
}

// scanRow reads the current row into JSON-safe values.
func scanRow(rows *sql.Rows, colTypes []*sql.ColumnType, decode valueDecoder) ([]any, error) {
	values := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make([]any, len(values))
	for i, v := range values {
		row[i] = decode(colTypes[i], v)
	}
	return row, nil
}

// textOrBase64 keeps valid UTF-8 as a string and base64-encodes anything
// that would corrupt a JSON payload.
func textOrBase64(b []byte) any {
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}
