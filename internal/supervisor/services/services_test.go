// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*StateGCService)(nil)
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown unless listenErr
// is set.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return f.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		srv := newFakeHTTPServer()
		svc := NewHTTPServerService(srv, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-srv.started
		cancel()
		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d, want 1", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		srv := newFakeHTTPServer()
		srv.listenErr = bindErr
		if err := NewHTTPServerService(srv, time.Second).Serve(context.Background()); !errors.Is(err, bindErr) {
			t.Errorf("Serve() = %v, want %v", err, bindErr)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		srv := newFakeHTTPServer()
		srv.shutdownErr = shutdownErr
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- NewHTTPServerService(srv, time.Second).Serve(ctx) }()
		<-srv.started
		cancel()
		if err := <-errCh; !errors.Is(err, shutdownErr) {
			t.Errorf("Serve() = %v, want %v", err, shutdownErr)
		}
	})

	t.Run("default timeout", func(t *testing.T) {
		if svc := NewHTTPServerService(newFakeHTTPServer(), 0); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("shutdownTimeout = %v", svc.shutdownTimeout)
		}
	})
}

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (f *fakeGC) RunGC() error {
	f.runs.Add(1)
	return f.err
}

func TestStateGCService(t *testing.T) {
	gc := &fakeGC{err: errors.New("disk busy")}
	svc := NewStateGCService(gc, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	for ctx.Err() == nil && gc.runs.Load() < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if gc.runs.Load() < 2 {
		t.Errorf("GC runs = %d; failures must not stop the service", gc.runs.Load())
	}
	if svc.String() != "state-gc" {
		t.Errorf("String() = %q", svc.String())
	}
}
