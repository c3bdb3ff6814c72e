package service

import (
	"syscall"
	"testing"
	"time"
)

// TestTerminationTrigger verifies programmatic termination flips the flag.
func TestTerminationTrigger(t *testing.T) {
	h := NewTerminationHandler()
	if h.Terminating() {
		t.Fatal("new handler must not be terminating")
	}

	h.Trigger()

	if !h.Terminating() {
		t.Error("expected terminating after Trigger")
	}
}

// TestTerminationSignal verifies an OS signal sets the flag without killing
// the process.
func TestTerminationSignal(t *testing.T) {
	h := NewTerminationHandler()
	h.Listen(syscall.SIGUSR1)
	defer h.Close()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to send signal: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for !h.Terminating() {
		select {
		case <-deadline:
			t.Fatal("flag not set within 2s of SIGUSR1")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
