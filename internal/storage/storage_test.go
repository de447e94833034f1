package storage_test

import (
	"path/filepath"
	"testing"

	"tabular/internal/domain"
	"tabular/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectionStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewConnectionStore(db)

	conn := &domain.SavedConnection{
		ID:   "c1",
		Name: "prod",
		Params: domain.ConnectionParams{
			Driver:       domain.DriverPostgres,
			Host:         "db.internal",
			Port:         5432,
			Username:     "app",
			Database:     "prod",
			SSHEnabled:   true,
			SSHProfileID: "p1",
			SSHHost:      "legacy-bastion",
			SSHPort:      2222,
			SSHUser:      "ops",
			SSHKeyFile:   "/keys/id_rsa",
		},
	}
	if err := store.Create(conn); err != nil {
		t.Fatalf("create: %v", err)
	}
	if conn.CreatedAt.IsZero() {
		t.Error("Create did not stamp CreatedAt")
	}

	got, err := store.Get("c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "prod" || got.Params.Driver != domain.DriverPostgres {
		t.Errorf("got %+v", got)
	}
	if !got.Params.SSHEnabled || got.Params.SSHProfileID != "p1" {
		t.Errorf("ssh fields lost: %+v", got.Params)
	}
	if got.Params.SSHHost != "legacy-bastion" || got.Params.SSHPort != 2222 || got.Params.SSHUser != "ops" || got.Params.SSHKeyFile != "/keys/id_rsa" {
		t.Errorf("inline ssh fields lost: %+v", got.Params)
	}

	got.Name = "prod-replica"
	got.Params.Host = "replica.internal"
	if err := store.Update(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := store.Get("c1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "prod-replica" || again.Params.Host != "replica.internal" {
		t.Errorf("update lost: %+v", again)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list has %d entries, want 1", len(list))
	}

	if err := store.Delete("c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("c1"); err == nil {
		t.Error("get after delete should fail")
	}
}

func TestSSHProfileStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewSSHProfileStore(db)

	p := &domain.SSHProfile{
		ID:       "p1",
		Name:     "bastion",
		Host:     "bastion.example.com",
		Port:     2222,
		User:     "deploy",
		AuthKind: domain.SSHAuthKey,
		KeyFile:  "/home/deploy/.ssh/id_ed25519",
	}
	if err := store.Create(p); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Host != "bastion.example.com" || got.AuthKind != domain.SSHAuthKey {
		t.Errorf("got %+v", got)
	}

	got.Port = 22
	if err := store.Update(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := store.Get("p1")
	if again.Port != 22 {
		t.Errorf("port = %d after update", again.Port)
	}

	if err := store.Delete("p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("p1"); err == nil {
		t.Error("get after delete should fail")
	}
}

func TestConnectionStore_ConnectionsUsing(t *testing.T) {
	db := newTestDB(t)
	conns := storage.NewConnectionStore(db)

	conns.Create(&domain.SavedConnection{
		ID: "c1", Name: "a",
		Params: domain.ConnectionParams{Driver: domain.DriverMySQL, SSHEnabled: true, SSHProfileID: "p1"},
	})
	conns.Create(&domain.SavedConnection{
		ID: "c2", Name: "b",
		Params: domain.ConnectionParams{Driver: domain.DriverMySQL},
	})

	ids, err := conns.ConnectionsUsing("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("ConnectionsUsing = %v, want [c1]", ids)
	}
}
