package dbclient

import (
	"database/sql"
	"encoding/base64"
	"time"
)

// decodeMySQLValue maps go-sql-driver values to JSON-safe values. With
// parseTime enabled temporals arrive as time.Time; most text and decimal
// columns arrive as []byte.
func decodeMySQLValue(colType *sql.ColumnType, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(datetimeFormat)
	case int64, int32, uint64, uint32, float64, float32, bool, string:
		return val
	case []byte:
		switch colType.DatabaseTypeName() {
		case "DECIMAL", "NUMERIC":
			return string(val)
		case "JSON":
			return string(val)
		case "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
			return base64.StdEncoding.EncodeToString(val)
		default:
			return textOrBase64(val)
		}
	default:
		return val
	}
}
