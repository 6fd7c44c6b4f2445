package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestServe_WaitsForCleanup(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	sig := make(chan os.Signal, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var cleaned atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(srv, sig, log, func() {
			time.Sleep(50 * time.Millisecond)
			cleaned.Store(true)
		})
	}()

	sig <- syscall.SIGTERM
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the signal")
	}
	if !cleaned.Load() {
		t.Error("expected cleanup to finish before serve returned")
	}
}

func TestServe_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := serve(srv, make(chan os.Signal), log, func() {}); err == nil {
		t.Error("expected an error for an invalid listen address")
	}
}
