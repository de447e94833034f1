package storage

import (
	"database/sql"
	"fmt"
	"time"

	"tabular/internal/domain"
)

// SSHProfileStore manages SSH profile records in SQLite.
type SSHProfileStore struct {
	db *DB
}

func NewSSHProfileStore(db *DB) *SSHProfileStore {
	return &SSHProfileStore{db: db}
}

func (s *SSHProfileStore) Create(p *domain.SSHProfile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.Conn().Exec(
		`INSERT INTO ssh_profiles (id, name, host, port, user, auth_kind, key_file, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Host, p.Port, p.User, p.AuthKind, p.KeyFile, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *SSHProfileStore) Get(id string) (*domain.SSHProfile, error) {
	row := s.db.Conn().QueryRow(
		`SELECT id, name, host, port, user, auth_kind, key_file, created_at, updated_at
		 FROM ssh_profiles WHERE id = ?`, id,
	)
	p := &domain.SSHProfile{}
	err := row.Scan(&p.ID, &p.Name, &p.Host, &p.Port, &p.User, &p.AuthKind, &p.KeyFile, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ssh profile not found: %s", id)
	}
	return p, err
}

func (s *SSHProfileStore) List() ([]domain.SSHProfile, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, name, host, port, user, auth_kind, key_file, created_at, updated_at
		 FROM ssh_profiles ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.SSHProfile
	for rows.Next() {
		var p domain.SSHProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Host, &p.Port, &p.User, &p.AuthKind, &p.KeyFile, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SSHProfileStore) Update(p *domain.SSHProfile) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.Conn().Exec(
		`UPDATE ssh_profiles SET name=?, host=?, port=?, user=?, auth_kind=?, key_file=?, updated_at=?
		 WHERE id=?`,
		p.Name, p.Host, p.Port, p.User, p.AuthKind, p.KeyFile, p.UpdatedAt, p.ID,
	)
	return err
}

func (s *SSHProfileStore) Delete(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM ssh_profiles WHERE id = ?`, id)
	return err
}
