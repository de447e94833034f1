package service

import (
	"fmt"

	"github.com/google/uuid"

	"tabular/internal/domain"
	"tabular/internal/secret"
	"tabular/internal/sshtunnel"
	"tabular/internal/storage"
)

// SSHProfileService manages reusable SSH identities. Passwords and key
// passphrases go to the SecretStore; the row keeps only non-sensitive
// fields.
type SSHProfileService struct {
	store    *storage.SSHProfileStore
	conns    *storage.ConnectionStore
	secrets  secret.SecretStore
	resolver *Resolver
}

func NewSSHProfileService(store *storage.SSHProfileStore, conns *storage.ConnectionStore, secrets secret.SecretStore, resolver *Resolver) *SSHProfileService {
	return &SSHProfileService{
		store:    store,
		conns:    conns,
		secrets:  secrets,
		resolver: resolver,
	}
}

func (s *SSHProfileService) Create(p domain.SSHProfile) (*domain.SSHProfile, error) {
	p.ID = uuid.NewString()
	if p.Port == 0 {
		p.Port = sshtunnel.DefaultSSHPort
	}
	stored := p
	stored.Password = ""
	stored.KeyPassphrase = ""
	if err := s.store.Create(&stored); err != nil {
		return nil, fmt.Errorf("save ssh profile: %w", err)
	}
	if err := s.saveSecrets(stored.ID, p); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *SSHProfileService) Update(p domain.SSHProfile) (*domain.SSHProfile, error) {
	existing, err := s.store.Get(p.ID)
	if err != nil {
		return nil, err
	}
	s.evictProfileTunnels(existing)

	stored := p
	stored.Password = ""
	stored.KeyPassphrase = ""
	stored.CreatedAt = existing.CreatedAt
	if err := s.store.Update(&stored); err != nil {
		return nil, fmt.Errorf("update ssh profile: %w", err)
	}
	if err := s.saveSecrets(p.ID, p); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *SSHProfileService) Delete(id string) error {
	if existing, err := s.store.Get(id); err == nil {
		s.evictProfileTunnels(existing)
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("delete ssh profile: %w", err)
	}
	s.secrets.Delete(secret.SSHPasswordKey(id))
	s.secrets.Delete(secret.SSHPassphraseKey(id))
	return nil
}

// Get returns the profile with its secrets hydrated.
func (s *SSHProfileService) Get(id string) (*domain.SSHProfile, error) {
	p, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if pw, err := s.secrets.Get(secret.SSHPasswordKey(id)); err == nil && len(pw) > 0 {
		p.Password = string(pw)
	}
	if pp, err := s.secrets.Get(secret.SSHPassphraseKey(id)); err == nil && len(pp) > 0 {
		p.KeyPassphrase = string(pp)
	}
	return p, nil
}

// List returns profiles without secrets, for display.
func (s *SSHProfileService) List() ([]domain.SSHProfile, error) {
	return s.store.List()
}

// Test opens a throwaway tunnel to verify the profile can authenticate.
// The forward target is the SSH host's own ssh port, which is the one
// port we know is reachable from the far side.
func (s *SSHProfileService) Test(p domain.SSHProfile) error {
	cfg := sshtunnel.Config{
		Host:          p.Host,
		Port:          p.Port,
		User:          p.User,
		Password:      p.Password,
		KeyFile:       p.KeyFile,
		KeyPassphrase: p.KeyPassphrase,
	}
	port := p.Port
	if port == 0 {
		port = sshtunnel.DefaultSSHPort
	}
	tunnel, err := sshtunnel.Open(cfg, "127.0.0.1", port)
	if err != nil {
		return err
	}
	tunnel.Stop()
	return nil
}

func (s *SSHProfileService) saveSecrets(id string, p domain.SSHProfile) error {
	if p.Password != "" {
		if err := s.secrets.Set(secret.SSHPasswordKey(id), []byte(p.Password)); err != nil {
			return fmt.Errorf("store ssh password: %w", err)
		}
	}
	if p.KeyPassphrase != "" {
		if err := s.secrets.Set(secret.SSHPassphraseKey(id), []byte(p.KeyPassphrase)); err != nil {
			return fmt.Errorf("store ssh passphrase: %w", err)
		}
	}
	return nil
}

// evictProfileTunnels drops live tunnels of every connection that routes
// through the profile.
func (s *SSHProfileService) evictProfileTunnels(p *domain.SSHProfile) {
	ids, err := s.conns.ConnectionsUsing(p.ID)
	if err != nil {
		return
	}
	for _, id := range ids {
		conn, err := s.conns.Get(id)
		if err != nil {
			continue
		}
		params := conn.Params
		params.SSHHost = p.Host
		params.SSHPort = p.Port
		params.SSHUser = p.User
		s.resolver.EvictTunnel(params)
	}
}
