package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestWithSignalsFollowsParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := WithSignals(parent, nil)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not cancelled with its parent")
	}
}

func TestWithSignalsCancelsOnSIGTERM(t *testing.T) {
	ctx, cancel := WithSignals(context.Background(), nil)
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled on SIGTERM")
	}
}
