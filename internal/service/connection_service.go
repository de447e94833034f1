package service

import (
	"fmt"

	"github.com/google/uuid"

	"tabular/internal/domain"
	"tabular/internal/secret"
	"tabular/internal/storage"
)

// ConnectionService manages saved connections. Connection rows live in
// SQLite; the database password lives in the SecretStore keyed by the
// connection id.
type ConnectionService struct {
	store    *storage.ConnectionStore
	profiles *SSHProfileService
	secrets  secret.SecretStore
	resolver *Resolver
}

func NewConnectionService(store *storage.ConnectionStore, profiles *SSHProfileService, secrets secret.SecretStore, resolver *Resolver) *ConnectionService {
	return &ConnectionService{
		store:    store,
		profiles: profiles,
		secrets:  secrets,
		resolver: resolver,
	}
}

// Create persists a new connection and stashes its password.
func (s *ConnectionService) Create(name string, params domain.ConnectionParams) (*domain.SavedConnection, error) {
	conn := &domain.SavedConnection{
		ID:     uuid.NewString(),
		Name:   name,
		Params: stripSecrets(params),
	}
	if err := s.store.Create(conn); err != nil {
		return nil, fmt.Errorf("save connection: %w", err)
	}
	if params.Password != "" {
		if err := s.secrets.Set(secret.DBPasswordKey(conn.ID), []byte(params.Password)); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return conn, nil
}

// Update rewrites a connection. An empty password keeps the stored one.
func (s *ConnectionService) Update(id, name string, params domain.ConnectionParams) (*domain.SavedConnection, error) {
	existing, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	// A profile change or endpoint edit invalidates any live tunnel.
	if old, err := s.LoadParams(id); err == nil {
		s.resolver.EvictTunnel(old)
	}

	existing.Name = name
	existing.Params = stripSecrets(params)
	if err := s.store.Update(existing); err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	if params.Password != "" {
		if err := s.secrets.Set(secret.DBPasswordKey(id), []byte(params.Password)); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return existing, nil
}

// Duplicate copies a connection under a fresh id. The stored password is
// copied to the new secret entry so the copy works without re-entering it.
func (s *ConnectionService) Duplicate(id string) (*domain.SavedConnection, error) {
	original, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	dup := &domain.SavedConnection{
		ID:     uuid.NewString(),
		Name:   original.Name + " (Copy)",
		Params: original.Params,
	}
	if err := s.store.Create(dup); err != nil {
		return nil, fmt.Errorf("duplicate connection: %w", err)
	}
	if pw, err := s.secrets.Get(secret.DBPasswordKey(id)); err == nil && len(pw) > 0 {
		if err := s.secrets.Set(secret.DBPasswordKey(dup.ID), pw); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return dup, nil
}

// Delete removes the connection, its secret, and any tunnel it used.
func (s *ConnectionService) Delete(id string) error {
	if params, err := s.LoadParams(id); err == nil {
		s.resolver.EvictTunnel(params)
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	s.secrets.Delete(secret.DBPasswordKey(id))
	return nil
}

func (s *ConnectionService) Get(id string) (*domain.SavedConnection, error) {
	return s.store.Get(id)
}

func (s *ConnectionService) List() ([]domain.SavedConnection, error) {
	return s.store.List()
}

// LoadParams hydrates a saved connection into dialable params: the DB
// password comes back from the SecretStore and a referenced SSH profile
// is flattened into the inline SSH fields.
func (s *ConnectionService) LoadParams(id string) (domain.ConnectionParams, error) {
	conn, err := s.store.Get(id)
	if err != nil {
		return domain.ConnectionParams{}, err
	}
	params := conn.Params

	if pw, err := s.secrets.Get(secret.DBPasswordKey(id)); err == nil && len(pw) > 0 {
		params.Password = string(pw)
	}

	if params.SSHEnabled && params.SSHProfileID != "" {
		profile, err := s.profiles.Get(params.SSHProfileID)
		if err != nil {
			return domain.ConnectionParams{}, fmt.Errorf("load ssh profile: %w", err)
		}
		params.SSHHost = profile.Host
		params.SSHPort = profile.Port
		params.SSHUser = profile.User
		params.SSHPassword = profile.Password
		params.SSHKeyFile = profile.KeyFile
		params.SSHKeyPassphrase = profile.KeyPassphrase
	}
	return params, nil
}

// stripSecrets clears fields that must never hit the SQLite file.
func stripSecrets(params domain.ConnectionParams) domain.ConnectionParams {
	params.Password = ""
	params.SSHPassword = ""
	params.SSHKeyPassphrase = ""
	return params
}
