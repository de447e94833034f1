package service_test

import (
	"context"
	"errors"
	"testing"

	"tabular/internal/service"
)

func TestCancelRegistry_CancelAbortsContext(t *testing.T) {
	reg := service.NewCancelRegistry()
	ctx, _ := reg.Register("q1", context.Background())

	if err := reg.Cancel("q1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("context not cancelled")
	}
}

func TestCancelRegistry_CancelUnknownID(t *testing.T) {
	reg := service.NewCancelRegistry()
	if err := reg.Cancel("nope"); !errors.Is(err, service.ErrNoRunningQuery) {
		t.Fatalf("got %v, want ErrNoRunningQuery", err)
	}
}

func TestCancelRegistry_SecondCancelErrors(t *testing.T) {
	reg := service.NewCancelRegistry()
	reg.Register("q1", context.Background())

	if err := reg.Cancel("q1"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Cancel("q1"); !errors.Is(err, service.ErrNoRunningQuery) {
		t.Fatalf("second cancel: got %v, want ErrNoRunningQuery", err)
	}
}

func TestCancelRegistry_ReregisterOverwrites(t *testing.T) {
	reg := service.NewCancelRegistry()
	first, _ := reg.Register("q1", context.Background())
	second, _ := reg.Register("q1", context.Background())

	// The superseded execution keeps running; it just can no longer be
	// cancelled through the registry.
	select {
	case <-first.Done():
		t.Error("superseded execution was aborted on overwrite")
	default:
	}

	if err := reg.Cancel("q1"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-second.Done():
	default:
		t.Error("current execution not cancelled")
	}
	select {
	case <-first.Done():
		t.Error("cancel reached the superseded execution")
	default:
	}
}

func TestCancelRegistry_StaleReleaseKeepsSuccessor(t *testing.T) {
	reg := service.NewCancelRegistry()
	_, gen1 := reg.Register("q1", context.Background())
	second, _ := reg.Register("q1", context.Background())

	// The first execution's deferred release fires after the second
	// registered; it must not remove the successor's entry.
	reg.Release("q1", gen1)

	if !reg.Running("q1") {
		t.Fatal("stale release removed the successor")
	}
	select {
	case <-second.Done():
		t.Error("stale release cancelled the successor")
	default:
	}
}

func TestCancelRegistry_ReleaseRemovesEntry(t *testing.T) {
	reg := service.NewCancelRegistry()
	_, gen := reg.Register("q1", context.Background())
	reg.Release("q1", gen)

	if reg.Running("q1") {
		t.Error("entry survived release")
	}
	if err := reg.Cancel("q1"); !errors.Is(err, service.ErrNoRunningQuery) {
		t.Errorf("cancel after release: got %v, want ErrNoRunningQuery", err)
	}
}
