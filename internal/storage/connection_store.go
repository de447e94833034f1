package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tabular/internal/domain"
)

// ConnectionStore manages saved connection records in SQLite.
type ConnectionStore struct {
	db *DB
}

func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

func (s *ConnectionStore) Create(c *domain.SavedConnection) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Conn().Exec(
		`INSERT INTO connections (id, name, driver, host, port, username, database_name, ssl_mode, ssh_enabled, ssh_profile_id, ssh_host, ssh_port, ssh_user, ssh_key_file, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Params.Driver, c.Params.Host, c.Params.Port, c.Params.Username,
		c.Params.Database, c.Params.SSLMode, c.Params.SSHEnabled, c.Params.SSHProfileID,
		c.Params.SSHHost, c.Params.SSHPort, c.Params.SSHUser, c.Params.SSHKeyFile,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *ConnectionStore) Get(id string) (*domain.SavedConnection, error) {
	row := s.db.Conn().QueryRow(
		`SELECT id, name, driver, host, port, username, database_name, ssl_mode, ssh_enabled, ssh_profile_id, ssh_host, ssh_port, ssh_user, ssh_key_file, created_at, updated_at
		 FROM connections WHERE id = ?`, id,
	)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("connection not found: %s", id)
	}
	return c, err
}

func (s *ConnectionStore) List() ([]domain.SavedConnection, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, name, driver, host, port, username, database_name, ssl_mode, ssh_enabled, ssh_profile_id, ssh_host, ssh_port, ssh_user, ssh_key_file, created_at, updated_at
		 FROM connections ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.SavedConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

func (s *ConnectionStore) Update(c *domain.SavedConnection) error {
	c.UpdatedAt = time.Now()
	_, err := s.db.Conn().Exec(
		`UPDATE connections SET name=?, driver=?, host=?, port=?, username=?, database_name=?, ssl_mode=?, ssh_enabled=?, ssh_profile_id=?, ssh_host=?, ssh_port=?, ssh_user=?, ssh_key_file=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Params.Driver, c.Params.Host, c.Params.Port, c.Params.Username,
		c.Params.Database, c.Params.SSLMode, c.Params.SSHEnabled, c.Params.SSHProfileID,
		c.Params.SSHHost, c.Params.SSHPort, c.Params.SSHUser, c.Params.SSHKeyFile,
		c.UpdatedAt, c.ID,
	)
	return err
}

func (s *ConnectionStore) Delete(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM connections WHERE id = ?`, id)
	return err
}

// ConnectionsUsing returns the ids of connections referencing the profile.
// Used to evict their tunnels when the profile changes or is deleted.
func (s *ConnectionStore) ConnectionsUsing(profileID string) ([]string, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id FROM connections WHERE ssh_profile_id = ?`, profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.SavedConnection, error) {
	c := &domain.SavedConnection{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Params.Driver, &c.Params.Host, &c.Params.Port,
		&c.Params.Username, &c.Params.Database, &c.Params.SSLMode,
		&c.Params.SSHEnabled, &c.Params.SSHProfileID,
		&c.Params.SSHHost, &c.Params.SSHPort, &c.Params.SSHUser, &c.Params.SSHKeyFile,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
