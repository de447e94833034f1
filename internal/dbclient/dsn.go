package dbclient

import (
	"fmt"
	"strings"

	"tabular/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// BuildDSN maps resolved connection params to a database/sql driver name
// and DSN. Host and port are expected to already point at the tunnel
// endpoint when SSH is in play.
func BuildDSN(params domain.ConnectionParams) (driverName, dsn string, err error) {
	switch params.Driver {
	case domain.DriverMySQL:
		return "mysql", buildMySQLDSN(params), nil
	case domain.DriverPostgres:
		return "postgres", buildPostgresDSN(params), nil
	case domain.DriverSQLite:
		return "sqlite", buildSQLiteDSN(params), nil
	default:
		return "", "", fmt.Errorf("unsupported driver: %s", params.Driver)
	}
}

// buildMySQLDSN constructs a MySQL DSN.
// Format: user:password@tcp(host:port)/dbname?parseTime=true
func buildMySQLDSN(params domain.ConnectionParams) string {
	port := params.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		params.Username, params.Password, params.Host, port, params.Database,
	)
	if params.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildPostgresDSN constructs a Postgres key/value connection string.
func buildPostgresDSN(params domain.ConnectionParams) string {
	port := params.Port
	if port == 0 {
		port = 5432
	}
	sslMode := params.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host, port, pqQuote(params.Username), pqQuote(params.Password),
		params.Database, sslMode,
	)
}

// pqQuote single-quotes a key/value connstring value when it contains
// characters lib/pq would otherwise split on.
func pqQuote(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// buildSQLiteDSN opens the database file in WAL mode with a busy timeout
// so the app and external tools can share it.
func buildSQLiteDSN(params domain.ConnectionParams) string {
	return params.Database + "?_journal_mode=WAL&_busy_timeout=5000"
}
