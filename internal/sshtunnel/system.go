package sshtunnel

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// maxLogBytes bounds the captured ssh output so a chatty server can't
// grow memory unbounded. Only the tail matters for error reporting.
const maxLogBytes = 8 << 10

// tailBuffer is a concurrency-safe writer keeping the last maxLogBytes
// of a process stream.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > maxLogBytes {
		b.buf = b.buf[len(b.buf)-maxLogBytes:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

// openSystem spawns the user's ssh binary with a -L local forward.
// Keyless auth only: the process inherits the user's agent socket and
// default identities, and BatchMode keeps it from hanging on a prompt.
func openSystem(cfg Config, remoteHost string, remotePort int) (*Tunnel, error) {
	localPort, err := freeLocalPort()
	if err != nil {
		return nil, err
	}

	args := []string{
		"-N",
		"-L", fmt.Sprintf("127.0.0.1:%d:%s:%d", localPort, remoteHost, remotePort),
	}
	if cfg.Port != DefaultSSHPort {
		args = append(args, "-p", strconv.Itoa(cfg.Port))
	}
	if cfg.KeyFile != "" {
		args = append(args, "-i", cfg.KeyFile)
	}
	args = append(args,
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", "BatchMode=yes",
		fmt.Sprintf("%s@%s", cfg.User, cfg.Host),
	)

	var stdout, stderr tailBuffer
	cmd := exec.Command("ssh", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ssh: %w", err)
	}

	// Watch for the process dying before the forward comes up, which is
	// how auth failures and unreachable hosts surface with -N.
	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	if err := waitReady(localPort, exited); err != nil {
		select {
		case <-exited:
			detail := stderr.String()
			if detail == "" {
				detail = stdout.String()
			}
			return nil, fmt.Errorf("ssh exited before tunnel was ready: %s", detail)
		default:
		}
		cmd.Process.Kill()
		return nil, err
	}

	return &Tunnel{
		LocalPort: localPort,
		stopFn: func() {
			cmd.Process.Kill()
			<-exited
		},
	}, nil
}
