package dbclient

import (
	"database/sql"
	"encoding/base64"
	"time"
)

// decodePostgresValue maps lib/pq values to JSON-safe values. lib/pq
// hands back int64/float64/bool/string/time.Time natively and everything
// else as []byte, so the column's database type decides how bytes are
// interpreted.
func decodePostgresValue(colType *sql.ColumnType, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(datetimeFormat)
	case int64, int32, int16, float64, float32, bool, string:
		return val
	case []byte:
		switch colType.DatabaseTypeName() {
		case "NUMERIC", "DECIMAL":
			// Exact decimals stay textual to avoid float rounding.
			return string(val)
		case "UUID":
			return string(val)
		case "JSON", "JSONB":
			return string(val)
		case "BYTEA":
			return base64.StdEncoding.EncodeToString(val)
		default:
			return textOrBase64(val)
		}
	default:
		return val
	}
}
