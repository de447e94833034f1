package dbclient

import (
	"database/sql"
	"time"
)

// decodeSQLiteValue maps modernc.org/sqlite values to JSON-safe values.
// SQLite's dynamic typing means the driver already hands back the storage
// class: int64, float64, string, []byte, or nil.
func decodeSQLiteValue(_ *sql.ColumnType, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case int64, float64, bool:
		return val
	case time.Time:
		return val.Format(datetimeFormat)
	case []byte:
		return textOrBase64(val)
	default:
		return val
	}
}
