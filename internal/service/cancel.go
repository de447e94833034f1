package service

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoRunningQuery is returned when a cancel request targets an id
	// with no registered execution.
	ErrNoRunningQuery = errors.New("no running query with that id")

	// ErrQueryCancelled replaces driver errors when an execution fails
	// because the user cancelled it.
	ErrQueryCancelled = errors.New("query cancelled")
)

// CancelRegistry tracks in-flight query executions so the UI can abort
// them by id. Re-registering an id (the user re-runs the same editor tab)
// overwrites the slot without aborting the previous run; the old handle
// just becomes uncancellable. Generations keep a stale execution's
// deferred release from clobbering its successor's entry.
type CancelRegistry struct {
	mu      sync.Mutex
	nextGen uint64
	running map[string]cancelEntry
}

type cancelEntry struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{running: make(map[string]cancelEntry)}
}

// Register derives a cancellable context for the execution and records
// its cancel func under id. The returned generation must be passed back
// to Release.
func (r *CancelRegistry) Register(id string, ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGen++
	gen := r.nextGen
	r.running[id] = cancelEntry{gen: gen, cancel: cancel}
	return ctx, gen
}

// Release removes the entry for id, but only if it still belongs to the
// generation that registered it.
func (r *CancelRegistry) Release(id string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.running[id]; ok && entry.gen == gen {
		entry.cancel()
		delete(r.running, id)
	}
}

// Cancel aborts the execution registered under id.
func (r *CancelRegistry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.running[id]
	if !ok {
		return ErrNoRunningQuery
	}
	entry.cancel()
	delete(r.running, id)
	return nil
}

// Running reports whether an execution is registered under id.
func (r *CancelRegistry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}
