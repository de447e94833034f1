package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tabular/internal/domain"
)

const introspectTimeout = 15 * time.Second

// Ping verifies connectivity with a bounded timeout.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// ListDatabases returns the database names visible to the connection.
// A SQLite connection is a single file, so its list is empty.
func ListDatabases(ctx context.Context, db *sql.DB, driver domain.Driver) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	var query string
	switch driver {
	case domain.DriverSQLite:
		return nil, nil
	case domain.DriverPostgres:
		query = `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`
	case domain.DriverMySQL:
		query = `SHOW DATABASES`
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTables returns the user tables of the connected database.
func ListTables(ctx context.Context, db *sql.DB, driver domain.Driver) ([]domain.TableInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	var query string
	switch driver {
	case domain.DriverSQLite:
		query = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case domain.DriverPostgres:
		query = `SELECT table_name FROM information_schema.tables
		         WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		         ORDER BY table_name`
	case domain.DriverMySQL:
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		         WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		         ORDER BY TABLE_NAME`
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.TableInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, domain.TableInfo{Name: name})
	}
	return tables, rows.Err()
}

// TableColumns returns column metadata for one table.
func TableColumns(ctx context.Context, db *sql.DB, driver domain.Driver, table string) ([]domain.TableColumn, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	switch driver {
	case domain.DriverSQLite:
		return sqliteColumns(ctx, db, table)
	case domain.DriverPostgres:
		return postgresColumns(ctx, db, table)
	case domain.DriverMySQL:
		return mysqlColumns(ctx, db, table)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]domain.TableColumn, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []domain.TableColumn
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			continue
		}
		cols = append(cols, domain.TableColumn{
			Name:       name,
			DataType:   colType,
			IsPK:       pk > 0,
			IsNullable: notNull == 0,
			// INTEGER PRIMARY KEY is SQLite's rowid alias and
			// auto-assigns on insert.
			IsAutoIncrement: pk > 0 && strings.EqualFold(colType, "INTEGER"),
		})
	}
	return cols, rows.Err()
}

func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]domain.TableColumn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable = 'YES',
		       c.column_default LIKE 'nextval(%' OR c.is_identity = 'YES',
		       EXISTS (
		           SELECT 1 FROM information_schema.key_column_usage kcu
		           JOIN information_schema.table_constraints tc
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_schema = kcu.table_schema
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND kcu.table_name = c.table_name
		             AND kcu.column_name = c.column_name
		       )
		FROM information_schema.columns c
		WHERE c.table_name = $1 AND c.table_schema = current_schema()
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	defer rows.Close()

	var cols []domain.TableColumn
	for rows.Next() {
		var col domain.TableColumn
		var autoInc sql.NullBool
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &autoInc, &col.IsPK); err != nil {
			continue
		}
		col.IsAutoIncrement = autoInc.Valid && autoInc.Bool
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func mysqlColumns(ctx context.Context, db *sql.DB, table string) ([]domain.TableColumn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE = 'YES',
		       COLUMN_KEY = 'PRI', EXTRA LIKE '%auto_increment%'
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = ? AND TABLE_SCHEMA = DATABASE()
		ORDER BY ORDINAL_POSITION`, table)
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	defer rows.Close()

	var cols []domain.TableColumn
	for rows.Next() {
		var col domain.TableColumn
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.IsPK, &col.IsAutoIncrement); err != nil {
			continue
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ForeignKeys returns the foreign key constraints of one table, one entry
// per referencing column.
func ForeignKeys(ctx context.Context, db *sql.DB, driver domain.Driver, table string) ([]domain.ForeignKey, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	switch driver {
	case domain.DriverSQLite:
		return sqliteForeignKeys(ctx, db, table)
	case domain.DriverPostgres:
		return postgresForeignKeys(ctx, db, table)
	case domain.DriverMySQL:
		return mysqlForeignKeys(ctx, db, table)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Indexes returns the indexes of one table, one entry per indexed column.
func Indexes(ctx context.Context, db *sql.DB, driver domain.Driver, table string) ([]domain.IndexInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	switch driver {
	case domain.DriverSQLite:
		return sqliteIndexes(ctx, db, table)
	case domain.DriverPostgres:
		return postgresIndexes(ctx, db, table)
	case domain.DriverMySQL:
		return mysqlIndexes(ctx, db, table)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, table string) ([]domain.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
	}
	defer rows.Close()

	var fks []domain.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			continue
		}
		fks = append(fks, domain.ForeignKey{
			// SQLite does not expose constraint names here, so one is
			// synthesized from the constraint id.
			Name:       fmt.Sprintf("fk_%d_%s", id, refTable),
			ColumnName: from,
			RefTable:   refTable,
			RefColumn:  to,
			OnUpdate:   onUpdate,
			OnDelete:   onDelete,
		})
	}
	return fks, rows.Err()
}

func sqliteIndexes(ctx context.Context, db *sql.DB, table string) ([]domain.IndexInfo, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("index_list %s: %w", table, err)
	}

	type indexHead struct {
		name    string
		unique  bool
		primary bool
	}
	var heads []indexHead
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			continue
		}
		heads = append(heads, indexHead{name: name, unique: unique > 0, primary: origin == "pk"})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	var indexes []domain.IndexInfo
	for _, h := range heads {
		info, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(h.name)))
		if err != nil {
			return nil, fmt.Errorf("index_info %s: %w", h.name, err)
		}
		for info.Next() {
			var seqno, cid int
			var col string
			if err := info.Scan(&seqno, &cid, &col); err != nil {
				continue
			}
			indexes = append(indexes, domain.IndexInfo{
				Name:       h.name,
				ColumnName: col,
				IsUnique:   h.unique,
				IsPrimary:  h.primary,
				SeqInIndex: seqno,
			})
		}
		err = info.Err()
		info.Close()
		if err != nil {
			return nil, err
		}
	}
	return indexes, nil
}

func postgresForeignKeys(ctx context.Context, db *sql.DB, table string) ([]domain.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name,
		       rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = tc.constraint_name
		 AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_name = $1 AND tc.table_schema = current_schema()
		ORDER BY tc.constraint_name, kcu.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	defer rows.Close()

	var fks []domain.ForeignKey
	for rows.Next() {
		var fk domain.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.ColumnName, &fk.RefTable, &fk.RefColumn, &fk.OnUpdate, &fk.OnDelete); err != nil {
			continue
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func postgresIndexes(ctx context.Context, db *sql.DB, table string) ([]domain.IndexInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary, k.n
		FROM pg_class t
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, n) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE t.relname = $1 AND t.relkind = 'r'
		ORDER BY i.relname, k.n`, table)
	if err != nil {
		return nil, fmt.Errorf("indexes %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []domain.IndexInfo
	for rows.Next() {
		var idx domain.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.ColumnName, &idx.IsUnique, &idx.IsPrimary, &idx.SeqInIndex); err != nil {
			continue
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func mysqlForeignKeys(ctx context.Context, db *sql.DB, table string) ([]domain.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		       kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		       rc.UPDATE_RULE, rc.DELETE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		 AND rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
		WHERE kcu.TABLE_SCHEMA = DATABASE()
		  AND kcu.TABLE_NAME = ?
		  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	defer rows.Close()

	var fks []domain.ForeignKey
	for rows.Next() {
		var fk domain.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.ColumnName, &fk.RefTable, &fk.RefColumn, &fk.OnUpdate, &fk.OnDelete); err != nil {
			continue
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func mysqlIndexes(ctx context.Context, db *sql.DB, table string) ([]domain.IndexInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE, SEQ_IN_INDEX
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, table)
	if err != nil {
		return nil, fmt.Errorf("indexes %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []domain.IndexInfo
	for rows.Next() {
		var idx domain.IndexInfo
		var nonUnique int
		if err := rows.Scan(&idx.Name, &idx.ColumnName, &nonUnique, &idx.SeqInIndex); err != nil {
			continue
		}
		idx.IsUnique = nonUnique == 0
		idx.IsPrimary = idx.Name == "PRIMARY"
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// quoteIdent wraps an identifier in double quotes, doubling any embedded
// quote. Good enough for identifiers coming from introspection.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
