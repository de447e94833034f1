package dbclient_test

import (
	"strings"
	"testing"

	"tabular/internal/dbclient"
	"tabular/internal/domain"
)

func TestBuildDSN_MySQL(t *testing.T) {
	driverName, dsn, err := dbclient.BuildDSN(domain.ConnectionParams{
		Driver:   domain.DriverMySQL,
		Host:     "127.0.0.1",
		Port:     3307,
		Username: "root",
		Password: "pw",
		Database: "app",
	})
	if err != nil {
		t.Fatal(err)
	}
	if driverName != "mysql" {
		t.Errorf("driver = %q", driverName)
	}
	if want := "root:pw@tcp(127.0.0.1:3307)/app?parseTime=true&charset=utf8mb4"; dsn != want {
		t.Errorf("dsn = %q, want %q", dsn, want)
	}
}

func TestBuildDSN_MySQL_DefaultPort(t *testing.T) {
	_, dsn, err := dbclient.BuildDSN(domain.ConnectionParams{
		Driver: domain.DriverMySQL, Host: "h", Username: "u", Database: "d",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "tcp(h:3306)") {
		t.Errorf("default port missing: %q", dsn)
	}
}

func TestBuildDSN_Postgres(t *testing.T) {
	driverName, dsn, err := dbclient.BuildDSN(domain.ConnectionParams{
		Driver:   domain.DriverPostgres,
		Host:     "127.0.0.1",
		Port:     15432,
		Username: "app",
		Password: "s3cret",
		Database: "prod",
	})
	if err != nil {
		t.Fatal(err)
	}
	if driverName != "postgres" {
		t.Errorf("driver = %q", driverName)
	}
	for _, part := range []string{"host=127.0.0.1", "port=15432", "user=app", "password=s3cret", "dbname=prod", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}

func TestBuildDSN_Postgres_QuotesPassword(t *testing.T) {
	_, dsn, err := dbclient.BuildDSN(domain.ConnectionParams{
		Driver: domain.DriverPostgres, Host: "h", Username: "u",
		Password: "has space", Database: "d",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "password='has space'") {
		t.Errorf("password not quoted: %q", dsn)
	}
}

func TestBuildDSN_SQLite(t *testing.T) {
	driverName, dsn, err := dbclient.BuildDSN(domain.ConnectionParams{
		Driver:   domain.DriverSQLite,
		Database: "/tmp/app.db",
	})
	if err != nil {
		t.Fatal(err)
	}
	if driverName != "sqlite" {
		t.Errorf("driver = %q", driverName)
	}
	if !strings.HasPrefix(dsn, "/tmp/app.db?") || !strings.Contains(dsn, "_journal_mode=WAL") {
		t.Errorf("dsn = %q", dsn)
	}
}

func TestBuildDSN_Unsupported(t *testing.T) {
	_, _, err := dbclient.BuildDSN(domain.ConnectionParams{Driver: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("want unsupported driver error, got %v", err)
	}
}
