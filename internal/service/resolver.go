package service

import (
	"errors"
	"fmt"

	"tabular/internal/domain"
	"tabular/internal/sshtunnel"
)

var (
	ErrMissingSSHHost = errors.New("Missing SSH Host")
	ErrMissingSSHUser = errors.New("Missing SSH User")
)

// Resolver turns stored connection params into dialable ones. When SSH is
// enabled it ensures a shared tunnel exists and rewrites host/port to the
// tunnel's loopback endpoint; the caller's params are never mutated.
type Resolver struct {
	tunnels *sshtunnel.Registry
}

func NewResolver(tunnels *sshtunnel.Registry) *Resolver {
	return &Resolver{tunnels: tunnels}
}

// Tunnels exposes the registry for eviction and shutdown.
func (r *Resolver) Tunnels() *sshtunnel.Registry {
	return r.tunnels
}

// Resolve returns params ready to hand to the DSN builder. With SSH
// disabled it returns an unchanged copy. SQLite connections open a local
// file, so they never tunnel even when SSH is enabled.
func (r *Resolver) Resolve(params domain.ConnectionParams) (domain.ConnectionParams, error) {
	if !params.SSHEnabled || params.Driver == domain.DriverSQLite {
		return params, nil
	}
	if params.SSHHost == "" {
		return params, ErrMissingSSHHost
	}
	if params.SSHUser == "" {
		return params, ErrMissingSSHUser
	}

	cfg := sshtunnel.Config{
		Host:          params.SSHHost,
		Port:          params.SSHPort,
		User:          params.SSHUser,
		Password:      params.SSHPassword,
		KeyFile:       params.SSHKeyFile,
		KeyPassphrase: params.SSHKeyPassphrase,
	}
	if cfg.Port == 0 {
		cfg.Port = sshtunnel.DefaultSSHPort
	}

	remoteHost := params.Host
	remotePort := params.Port
	if remotePort == 0 {
		remotePort = params.Driver.DefaultPort()
	}

	key := sshtunnel.Key(cfg, remoteHost, remotePort)
	tunnel, err := r.tunnels.GetOrCreate(key, func() (*sshtunnel.Tunnel, error) {
		return sshtunnel.Open(cfg, remoteHost, remotePort)
	})
	if err != nil {
		return params, fmt.Errorf("open ssh tunnel: %w", err)
	}

	resolved := params
	resolved.Host = "127.0.0.1"
	resolved.Port = tunnel.LocalPort
	return resolved, nil
}

// EvictTunnel drops the tunnel these params would resolve through, if one
// is registered. Called when a connection or profile is deleted or edited
// so the next query dials fresh.
func (r *Resolver) EvictTunnel(params domain.ConnectionParams) {
	if !params.SSHEnabled || params.Driver == domain.DriverSQLite {
		return
	}
	cfg := sshtunnel.Config{
		Host: params.SSHHost,
		Port: params.SSHPort,
		User: params.SSHUser,
	}
	remotePort := params.Port
	if remotePort == 0 {
		remotePort = params.Driver.DefaultPort()
	}
	r.tunnels.Evict(sshtunnel.Key(cfg, params.Host, remotePort))
}
