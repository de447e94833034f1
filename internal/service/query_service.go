package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"tabular/internal/dbclient"
	"tabular/internal/domain"
)

// QueryService executes user queries against saved or ad-hoc connections,
// resolving SSH tunnels and routing cancellation by query id.
type QueryService struct {
	connections *ConnectionService
	resolver    *Resolver
	pools       *dbclient.PoolManager
	cancels     *CancelRegistry
}

func NewQueryService(connections *ConnectionService, resolver *Resolver, pools *dbclient.PoolManager, cancels *CancelRegistry) *QueryService {
	return &QueryService{
		connections: connections,
		resolver:    resolver,
		pools:       pools,
		cancels:     cancels,
	}
}

// ExecuteQuery runs query against a saved connection. queryID identifies
// the execution for cancellation; re-using an id takes over the slot and
// leaves the previous run uncancellable.
func (s *QueryService) ExecuteQuery(ctx context.Context, queryID, connectionID, query string, limit, page int) (*domain.QueryResult, error) {
	params, err := s.connections.LoadParams(connectionID)
	if err != nil {
		return nil, err
	}
	return s.ExecuteWithParams(ctx, queryID, params, query, limit, page)
}

// ExecuteWithParams runs query against explicit params, e.g. from a
// not-yet-saved connection form.
func (s *QueryService) ExecuteWithParams(ctx context.Context, queryID string, params domain.ConnectionParams, query string, limit, page int) (*domain.QueryResult, error) {
	db, driver, err := s.open(params)
	if err != nil {
		return nil, err
	}

	ctx, gen := s.cancels.Register(queryID, ctx)
	defer s.cancels.Release(queryID, gen)

	result, err := dbclient.Execute(ctx, db, driver, query, limit, page)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			log.Printf("query %s cancelled", queryID)
			return nil, ErrQueryCancelled
		}
		return nil, err
	}
	return result, nil
}

// CancelQuery aborts the running execution registered under queryID.
func (s *QueryService) CancelQuery(queryID string) error {
	return s.cancels.Cancel(queryID)
}

// TestConnection resolves params (opening a tunnel if needed) and pings.
func (s *QueryService) TestConnection(ctx context.Context, params domain.ConnectionParams) error {
	db, _, err := s.open(params)
	if err != nil {
		return err
	}
	return dbclient.Ping(ctx, db)
}

// ListDatabases enumerates the databases on a saved connection's server.
// The catalog lives in a maintenance database, so the handle is opened
// against that instead of the saved one.
func (s *QueryService) ListDatabases(ctx context.Context, connectionID string) ([]string, error) {
	params, err := s.connections.LoadParams(connectionID)
	if err != nil {
		return nil, err
	}
	switch params.Driver {
	case domain.DriverSQLite:
		return nil, nil
	case domain.DriverPostgres:
		params.Database = "postgres"
	case domain.DriverMySQL:
		params.Database = "information_schema"
	}
	db, driver, err := s.open(params)
	if err != nil {
		return nil, err
	}
	return dbclient.ListDatabases(ctx, db, driver)
}

// ListTables returns the tables of a saved connection's database.
func (s *QueryService) ListTables(ctx context.Context, connectionID string) ([]domain.TableInfo, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return nil, err
	}
	return dbclient.ListTables(ctx, db, driver)
}

// TableColumns returns column metadata for one table of a saved connection.
func (s *QueryService) TableColumns(ctx context.Context, connectionID, table string) ([]domain.TableColumn, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return nil, err
	}
	return dbclient.TableColumns(ctx, db, driver, table)
}

// ForeignKeys returns the foreign key constraints of one table.
func (s *QueryService) ForeignKeys(ctx context.Context, connectionID, table string) ([]domain.ForeignKey, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return nil, err
	}
	return dbclient.ForeignKeys(ctx, db, driver, table)
}

// Indexes returns the indexes of one table.
func (s *QueryService) Indexes(ctx context.Context, connectionID, table string) ([]domain.IndexInfo, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return nil, err
	}
	return dbclient.Indexes(ctx, db, driver, table)
}

// InsertRecord inserts a row built from column/value pairs.
func (s *QueryService) InsertRecord(ctx context.Context, connectionID, table string, data map[string]any) (int64, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return 0, err
	}
	return dbclient.InsertRecord(ctx, db, driver, table, data)
}

// UpdateRecord sets one column of the row identified by its primary key.
func (s *QueryService) UpdateRecord(ctx context.Context, connectionID, table, pkCol string, pkVal any, column string, value any) (int64, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return 0, err
	}
	return dbclient.UpdateRecord(ctx, db, driver, table, pkCol, pkVal, column, value)
}

// DeleteRecord removes the row identified by its primary key.
func (s *QueryService) DeleteRecord(ctx context.Context, connectionID, table, pkCol string, pkVal any) (int64, error) {
	db, driver, err := s.openSaved(connectionID)
	if err != nil {
		return 0, err
	}
	return dbclient.DeleteRecord(ctx, db, driver, table, pkCol, pkVal)
}

// openSaved loads a saved connection's params and opens its handle.
func (s *QueryService) openSaved(connectionID string) (*sql.DB, domain.Driver, error) {
	params, err := s.connections.LoadParams(connectionID)
	if err != nil {
		return nil, "", err
	}
	return s.open(params)
}

// open resolves params through the tunnel layer and returns the pooled
// handle for the resulting DSN.
func (s *QueryService) open(params domain.ConnectionParams) (db *sql.DB, driver domain.Driver, err error) {
	resolved, err := s.resolver.Resolve(params)
	if err != nil {
		return nil, "", err
	}
	driverName, dsn, err := dbclient.BuildDSN(resolved)
	if err != nil {
		return nil, "", err
	}
	pooled, err := s.pools.Get(driverName, dsn)
	if err != nil {
		return nil, "", err
	}
	return pooled, resolved.Driver, nil
}
