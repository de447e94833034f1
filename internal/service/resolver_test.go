package service_test

import (
	"errors"
	"strings"
	"testing"

	"tabular/internal/domain"
	"tabular/internal/service"
	"tabular/internal/sshtunnel"
)

func TestResolver_SSHDisabledReturnsUnchanged(t *testing.T) {
	r := service.NewResolver(sshtunnel.NewRegistry())
	params := domain.ConnectionParams{
		Driver:   domain.DriverPostgres,
		Host:     "db.internal",
		Port:     5432,
		Username: "app",
	}
	resolved, err := r.Resolve(params)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != params {
		t.Errorf("params changed without SSH: %+v", resolved)
	}
}

func TestResolver_SQLiteNeverTunnels(t *testing.T) {
	r := service.NewResolver(sshtunnel.NewRegistry())
	params := domain.ConnectionParams{
		Driver:     domain.DriverSQLite,
		Database:   "/data/app.db",
		SSHEnabled: true,
		SSHHost:    "bastion",
		SSHUser:    "deploy",
	}
	resolved, err := r.Resolve(params)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != params {
		t.Errorf("sqlite params changed: %+v", resolved)
	}
}

func TestResolver_MissingSSHHost(t *testing.T) {
	r := service.NewResolver(sshtunnel.NewRegistry())
	_, err := r.Resolve(domain.ConnectionParams{
		Driver:     domain.DriverMySQL,
		Host:       "db.internal",
		SSHEnabled: true,
		SSHUser:    "deploy",
	})
	if !errors.Is(err, service.ErrMissingSSHHost) {
		t.Fatalf("got %v, want ErrMissingSSHHost", err)
	}
	if !strings.Contains(err.Error(), "SSH Host") {
		t.Errorf("error text %q should name the missing field", err)
	}
}

func TestResolver_MissingSSHUser(t *testing.T) {
	r := service.NewResolver(sshtunnel.NewRegistry())
	_, err := r.Resolve(domain.ConnectionParams{
		Driver:     domain.DriverMySQL,
		Host:       "db.internal",
		SSHEnabled: true,
		SSHHost:    "bastion",
	})
	if !errors.Is(err, service.ErrMissingSSHUser) {
		t.Fatalf("got %v, want ErrMissingSSHUser", err)
	}
}

func TestResolver_RewritesToTunnelEndpoint(t *testing.T) {
	reg := sshtunnel.NewRegistry()
	// Pre-register a tunnel under the key Resolve will compute, so no
	// real SSH connection is attempted.
	cfg := sshtunnel.Config{Host: "bastion", Port: 22, User: "deploy"}
	key := sshtunnel.Key(cfg, "db.internal", 5432)
	reg.GetOrCreate(key, func() (*sshtunnel.Tunnel, error) {
		return &sshtunnel.Tunnel{LocalPort: 54321}, nil
	})

	r := service.NewResolver(reg)
	resolved, err := r.Resolve(domain.ConnectionParams{
		Driver:     domain.DriverPostgres,
		Host:       "db.internal",
		Port:       0, // default remote port comes from the dialect
		SSHEnabled: true,
		SSHHost:    "bastion",
		SSHUser:    "deploy",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", resolved.Host)
	}
	if resolved.Port != 54321 {
		t.Errorf("port = %d, want tunnel local port 54321", resolved.Port)
	}
	// The original params' driver and credentials survive the rewrite.
	if resolved.Driver != domain.DriverPostgres {
		t.Errorf("driver changed: %s", resolved.Driver)
	}
}

func TestResolver_EvictTunnel(t *testing.T) {
	reg := sshtunnel.NewRegistry()
	cfg := sshtunnel.Config{Host: "bastion", Port: 22, User: "deploy"}
	key := sshtunnel.Key(cfg, "db.internal", 3306)
	reg.GetOrCreate(key, func() (*sshtunnel.Tunnel, error) {
		return &sshtunnel.Tunnel{LocalPort: 40000}, nil
	})

	r := service.NewResolver(reg)
	r.EvictTunnel(domain.ConnectionParams{
		Driver:     domain.DriverMySQL,
		Host:       "db.internal",
		SSHEnabled: true,
		SSHHost:    "bastion",
		SSHUser:    "deploy",
	})
	if _, ok := reg.Get(key); ok {
		t.Error("tunnel survived eviction")
	}
}
