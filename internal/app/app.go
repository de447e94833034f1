package app

import (
	"context"
	"os"
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"tabular/internal/dbclient"
	"tabular/internal/domain"
	"tabular/internal/export"
	"tabular/internal/secret"
	"tabular/internal/service"
	"tabular/internal/sshtunnel"
	"tabular/internal/storage"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	db      *storage.DB
	secrets secret.SecretStore

	resolver    *service.Resolver
	pools       *dbclient.PoolManager
	cancels     *service.CancelRegistry
	connections *service.ConnectionService
	profiles    *service.SSHProfileService
	queries     *service.QueryService

	janitor *janitor
	watcher *storageWatcher
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "tabular")
	dbPath := filepath.Join(dataDir, "tabular.db")

	db, err := storage.New(dbPath)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.db = db

	secrets, err := secret.NewKeyringStore()
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Keyring unavailable, secrets held in memory: %v", err)
		a.secrets = secret.NewMemoryStore()
	} else {
		a.secrets = secrets
	}

	a.resolver = service.NewResolver(sshtunnel.NewRegistry())
	a.pools = dbclient.NewPoolManager()
	a.cancels = service.NewCancelRegistry()

	connStore := storage.NewConnectionStore(db)
	a.profiles = service.NewSSHProfileService(storage.NewSSHProfileStore(db), connStore, a.secrets, a.resolver)
	a.connections = service.NewConnectionService(connStore, a.profiles, a.secrets, a.resolver)
	a.queries = service.NewQueryService(a.connections, a.resolver, a.pools, a.cancels)

	// Background upkeep: sweep dead tunnels, watch the storage file for
	// writes by an external MCP process.
	a.janitor = startJanitor(ctx, a.resolver.Tunnels())
	watcher, err := watchStorage(ctx, dbPath)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Storage watcher disabled: %v", err)
	} else {
		a.watcher = watcher
	}
}

// Shutdown tears down tunnels, pools, and background workers.
func (a *App) Shutdown(ctx context.Context) {
	if a.janitor != nil {
		a.janitor.stop()
	}
	if a.watcher != nil {
		a.watcher.stop()
	}
	if a.pools != nil {
		a.pools.CloseAll()
	}
	if a.resolver != nil {
		a.resolver.Tunnels().StopAll()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// ── Connection bindings ────────────────────────────────────

func (a *App) ListConnections() ([]domain.SavedConnection, error) {
	return a.connections.List()
}

func (a *App) GetConnection(id string) (*domain.SavedConnection, error) {
	return a.connections.Get(id)
}

func (a *App) CreateConnection(name string, params domain.ConnectionParams) (*domain.SavedConnection, error) {
	conn, err := a.connections.Create(name, params)
	if err == nil {
		wailsRuntime.EventsEmit(a.ctx, "connections:changed")
	}
	return conn, err
}

func (a *App) UpdateConnection(id, name string, params domain.ConnectionParams) (*domain.SavedConnection, error) {
	conn, err := a.connections.Update(id, name, params)
	if err == nil {
		wailsRuntime.EventsEmit(a.ctx, "connections:changed")
	}
	return conn, err
}

// DuplicateConnection copies a saved connection, stored password included.
func (a *App) DuplicateConnection(id string) (*domain.SavedConnection, error) {
	conn, err := a.connections.Duplicate(id)
	if err == nil {
		wailsRuntime.EventsEmit(a.ctx, "connections:changed")
	}
	return conn, err
}

func (a *App) DeleteConnection(id string) error {
	err := a.connections.Delete(id)
	if err == nil {
		wailsRuntime.EventsEmit(a.ctx, "connections:changed")
	}
	return err
}

// TestConnection resolves params (opening a tunnel when SSH is enabled)
// and pings the database.
func (a *App) TestConnection(params domain.ConnectionParams) error {
	return a.queries.TestConnection(a.ctx, params)
}

// ── SSH profile bindings ───────────────────────────────────

func (a *App) ListSSHProfiles() ([]domain.SSHProfile, error) {
	return a.profiles.List()
}

func (a *App) CreateSSHProfile(p domain.SSHProfile) (*domain.SSHProfile, error) {
	return a.profiles.Create(p)
}

func (a *App) UpdateSSHProfile(p domain.SSHProfile) (*domain.SSHProfile, error) {
	return a.profiles.Update(p)
}

func (a *App) DeleteSSHProfile(id string) error {
	return a.profiles.Delete(id)
}

// TestSSHProfile verifies the profile can open a tunnel.
func (a *App) TestSSHProfile(p domain.SSHProfile) error {
	return a.profiles.Test(p)
}

// ── Query bindings ─────────────────────────────────────────

// ExecuteQuery runs a statement against a saved connection. queryID ties
// the execution to CancelQuery; re-running with the same id leaves the
// previous execution uncancellable.
func (a *App) ExecuteQuery(queryID, connectionID, query string, limit, page int) (*domain.QueryResult, error) {
	result, err := a.queries.ExecuteQuery(a.ctx, queryID, connectionID, query, limit, page)
	if err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Query %s failed: %v", queryID, err)
		return nil, err
	}
	return result, nil
}

// ExecuteAdHocQuery runs a statement against unsaved connection params,
// e.g. from the new-connection form.
func (a *App) ExecuteAdHocQuery(queryID string, params domain.ConnectionParams, query string, limit, page int) (*domain.QueryResult, error) {
	return a.queries.ExecuteWithParams(a.ctx, queryID, params, query, limit, page)
}

// CancelQuery aborts a running execution.
func (a *App) CancelQuery(queryID string) error {
	return a.queries.CancelQuery(queryID)
}

// ListTables returns the tables of a saved connection's database.
func (a *App) ListTables(connectionID string) ([]domain.TableInfo, error) {
	return a.queries.ListTables(a.ctx, connectionID)
}

// TableColumns returns column metadata for one table.
func (a *App) TableColumns(connectionID, table string) ([]domain.TableColumn, error) {
	return a.queries.TableColumns(a.ctx, connectionID, table)
}

// ListDatabases enumerates the databases on the connection's server.
func (a *App) ListDatabases(connectionID string) ([]string, error) {
	return a.queries.ListDatabases(a.ctx, connectionID)
}

// TableForeignKeys returns the foreign key constraints of one table.
func (a *App) TableForeignKeys(connectionID, table string) ([]domain.ForeignKey, error) {
	return a.queries.ForeignKeys(a.ctx, connectionID, table)
}

// TableIndexes returns the indexes of one table.
func (a *App) TableIndexes(connectionID, table string) ([]domain.IndexInfo, error) {
	return a.queries.Indexes(a.ctx, connectionID, table)
}

// ── Record bindings ────────────────────────────────────────

// InsertRecord inserts a row built in the table grid.
func (a *App) InsertRecord(connectionID, table string, data map[string]any) (int64, error) {
	return a.queries.InsertRecord(a.ctx, connectionID, table, data)
}

// UpdateRecord sets one cell of the row identified by its primary key.
func (a *App) UpdateRecord(connectionID, table, pkCol string, pkVal any, column string, value any) (int64, error) {
	return a.queries.UpdateRecord(a.ctx, connectionID, table, pkCol, pkVal, column, value)
}

// DeleteRecord removes the row identified by its primary key.
func (a *App) DeleteRecord(connectionID, table, pkCol string, pkVal any) (int64, error) {
	return a.queries.DeleteRecord(a.ctx, connectionID, table, pkCol, pkVal)
}

// ── Export bindings ────────────────────────────────────────

// ExportQuery runs a query and writes the rows to path as CSV or JSON.
// A limit of 0 exports the full result set.
func (a *App) ExportQuery(connectionID, query, path, format string, limit int) error {
	queryID := "export:" + connectionID
	result, err := a.queries.ExecuteQuery(a.ctx, queryID, connectionID, query, limit, 1)
	if err != nil {
		return err
	}
	return export.WriteFile(path, export.Format(format), result)
}
