// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP surface of the registry daemon: signed
// message intake, dry-run query evaluation and the patched state projection.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/actor"
)

// Not sure if these values need to be configurable.
const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Router assembles the daemon's routes around an actor.
func Router(a *actor.Actor, info *registry.ProcessInfo) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Timeout(middlewareTimeout),
		headersMiddleware,
	)

	routes := newProcessRoutes(a, info)
	r.Get("/health", routes.health)
	r.Post("/message", routes.message)
	r.Post("/dry-run", routes.dryRun)
	r.Get("/state/now/{script}", routes.readState)
	r.Get("/state/cache/{script}", routes.readState)
	return r
}

// Serve starts the daemon's HTTP server on the given address and blocks until
// ctx is cancelled. It is assumed that the caller sets up appropriate signal
// handling.
func Serve(ctx context.Context, address string, a *actor.Actor, info *registry.ProcessInfo) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           Router(a, info),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	logger.Infof("starting registry server on %s", listener.Addr())

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Panicf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
