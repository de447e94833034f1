package sshtunnel

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSSHPort is used when a config leaves the port unset.
	DefaultSSHPort = 22

	// readyTimeout bounds how long we wait for the forwarded local port
	// to accept connections before giving up on the tunnel.
	readyTimeout = 10 * time.Second

	// authTimeout bounds the SSH handshake of the native backend.
	authTimeout = 30 * time.Second

	// retryInterval is the poll cadence while waiting for readiness.
	retryInterval = 100 * time.Millisecond
)

// Config describes the SSH hop a tunnel goes through.
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	KeyFile       string
	KeyPassphrase string
}

// Key returns a deterministic identity for a tunnel: same SSH endpoint,
// user and forwarding target always produce the same key, which the
// registry uses to share one tunnel across connections.
func Key(cfg Config, remoteHost string, remotePort int) string {
	port := cfg.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	return fmt.Sprintf("%s@%s:%d:%s->%d", cfg.User, cfg.Host, port, remoteHost, remotePort)
}

// ShouldUseSystemSSH reports whether the external ssh binary backend
// should be used. Without a password the system ssh client can lean on
// the user's agent, default keys and ssh_config; with a password we must
// drive the handshake ourselves since ssh refuses passwords on stdin.
func ShouldUseSystemSSH(password string) bool {
	return strings.TrimSpace(password) == ""
}

// Tunnel is a live local-forward. Stop is idempotent and safe to call
// from multiple goroutines.
type Tunnel struct {
	LocalPort int
	key       string

	stopOnce sync.Once
	stopFn   func()
}

// Key returns the registry key this tunnel was opened under.
func (t *Tunnel) Key() string { return t.key }

// Addr returns the loopback endpoint clients should connect to.
func (t *Tunnel) Addr() string { return fmt.Sprintf("127.0.0.1:%d", t.LocalPort) }

// Stop tears the tunnel down and releases its local port.
func (t *Tunnel) Stop() {
	t.stopOnce.Do(func() {
		if t.stopFn != nil {
			t.stopFn()
		}
	})
}

// Alive probes whether the tunnel's local port still accepts connections.
func (t *Tunnel) Alive() bool {
	conn, err := net.DialTimeout("tcp", t.Addr(), retryInterval)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Open establishes a tunnel forwarding a fresh loopback port to
// remoteHost:remotePort through cfg's SSH server. The backend is chosen
// by ShouldUseSystemSSH.
func Open(cfg Config, remoteHost string, remotePort int) (*Tunnel, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultSSHPort
	}
	key := Key(cfg, remoteHost, remotePort)

	var (
		t   *Tunnel
		err error
	)
	if ShouldUseSystemSSH(cfg.Password) {
		t, err = openSystem(cfg, remoteHost, remotePort)
	} else {
		t, err = openNative(cfg, remoteHost, remotePort)
	}
	if err != nil {
		return nil, err
	}
	t.key = key
	return t, nil
}

// freeLocalPort asks the kernel for an unused loopback TCP port.
// There is a small window between releasing and rebinding it, but the
// system ssh backend has no way to inherit a listener, so this is the
// best we can do.
func freeLocalPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("reserve local port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

// waitReady polls the local port until it accepts a TCP connection or the
// deadline passes. abort lets the caller bail early (e.g. when the ssh
// process already exited).
func waitReady(port int, abort <-chan struct{}) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-abort:
			return fmt.Errorf("tunnel aborted before becoming ready")
		default:
		}
		conn, err := net.DialTimeout("tcp", addr, retryInterval)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(retryInterval)
	}
	return fmt.Errorf("tunnel did not become ready within %s", readyTimeout)
}
