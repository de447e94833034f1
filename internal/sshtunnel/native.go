package sshtunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// nativeTunnel drives the SSH handshake in-process. It exists for the
// password path, which the system ssh binary cannot do non-interactively.
type nativeTunnel struct {
	client   *ssh.Client
	listener net.Listener

	remoteAddr string

	// dialMu serializes channel opens on a single SSH connection; data
	// copy runs outside the lock.
	dialMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// openNative establishes the SSH session and starts forwarding a fresh
// loopback listener to remoteHost:remotePort.
func openNative(cfg Config, remoteHost string, remotePort int) (*Tunnel, error) {
	auth, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, err
	}

	sshAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         authTimeout,
	}

	client, err := dialWithDeadline(sshAddr, clientConfig)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("local listen: %w", err)
	}

	nt := &nativeTunnel{
		client:     client,
		listener:   listener,
		remoteAddr: net.JoinHostPort(remoteHost, strconv.Itoa(remotePort)),
		done:       make(chan struct{}),
	}
	nt.wg.Add(1)
	go nt.acceptLoop()

	return &Tunnel{
		LocalPort: listener.Addr().(*net.TCPAddr).Port,
		stopFn:    nt.stop,
	}, nil
}

// dialWithDeadline bounds both the TCP connect and the SSH handshake.
// ClientConfig.Timeout only covers the connect, so the handshake gets a
// deadline on the raw conn that is cleared once auth completes.
func dialWithDeadline(addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := net.DialTimeout("tcp", addr, config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("ssh connect %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(authTimeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

func (t *nativeTunnel) stop() {
	close(t.done)
	t.listener.Close()
	t.client.Close()
	t.wg.Wait()
}

func (t *nativeTunnel) acceptLoop() {
	defer t.wg.Done()
	var delay time.Duration
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			// Back off on repeated accept failures (fd exhaustion)
			// instead of spinning.
			if delay == 0 {
				delay = 10 * time.Millisecond
			} else if delay < time.Second {
				delay *= 2
			}
			time.Sleep(delay)
			continue
		}
		delay = 0
		t.wg.Add(1)
		go t.forward(local)
	}
}

// forward pipes one local connection through the SSH channel.
func (t *nativeTunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	t.dialMu.Lock()
	remote, err := t.client.Dial("tcp", t.remoteAddr)
	t.dialMu.Unlock()
	if err != nil {
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

// buildAuthMethods prefers a key file when one is configured, falling
// back to password auth.
func buildAuthMethods(cfg Config) ([]ssh.AuthMethod, error) {
	if cfg.KeyFile != "" {
		keyBytes, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyFile, err)
		}
		var signer ssh.Signer
		if cfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(cfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", cfg.KeyFile, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}
	return nil, fmt.Errorf("no ssh auth method configured for %s@%s", cfg.User, cfg.Host)
}
