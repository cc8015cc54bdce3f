// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/deskmirror/internal/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIServerService supervises the query API server.
//
// Stopping happens in two steps under one deadline: the server stops
// accepting requests, then drain waits for syncs that were triggered
// through POST /api/v1/sync. The service only reports itself stopped once
// both are done, so the warehouse is not closed under a running sync.
type APIServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	drain           func()
}

// NewAPIServerService wraps server. A non-positive shutdownTimeout means 10s.
// drain may be nil.
func NewAPIServerService(server HTTPServer, shutdownTimeout time.Duration, drain func()) *APIServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	addr := ""
	if s, ok := server.(*http.Server); ok {
		addr = s.Addr
	}
	return &APIServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		drain:           drain,
	}
}

// Serve listens until ctx is cancelled, then stops the server and drains
// triggered syncs. A listen failure is returned so the supervisor restarts
// the service.
func (s *APIServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logging.Info().Str("addr", s.addr).Msg("API server listening")

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("api server on %s failed: %w", s.addr, err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already done; the stop gets its own deadline.
		stopCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		<-errCh

		if err := s.waitForSyncs(stopCtx); err != nil {
			return err
		}
		logging.Info().Str("addr", s.addr).Msg("API server stopped")
		return ctx.Err()
	}
}

func (s *APIServerService) waitForSyncs(ctx context.Context) error {
	if s.drain == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.drain()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logging.Warn().Dur("timeout", s.shutdownTimeout).Msg("Triggered sync still running at shutdown deadline")
		return fmt.Errorf("waiting for triggered syncs: %w", ctx.Err())
	}
}

func (s *APIServerService) String() string {
	return "api-server"
}
