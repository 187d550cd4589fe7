// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// Server listens on a network address and serves a Router (spec §2:
// "a single-process HTTP server accepting requests on a network
// listener"). Network is either "tcp" (Address is a host:port) or
// "unix" (Address is a socket path); TLS termination, if any, is the
// out-of-scope external collaborator's responsibility (spec §1) — the
// listener here is always plain HTTP.
type Server struct {
	network    string
	address    string
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// ServerConfig holds configuration for creating a new Server.
type ServerConfig struct {
	// Network is "tcp" or "unix". Defaults to "tcp".
	Network string

	// Address is a "host:port" pair for tcp, or a filesystem path for
	// unix.
	Address string

	Handler http.Handler
	Logger  *slog.Logger
}

// NewServer creates a new proxy server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	network := config.Network
	if network == "" {
		network = "tcp"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		network: network,
		address: config.Address,
		httpServer: &http.Server{
			Handler:      config.Handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // logs and other streams are long-lived
		},
		logger: logger,
	}, nil
}

// Start begins listening and serving in the background. It returns once
// the listener is bound; Serve errors after that point are logged, not
// returned, matching the teacher's fire-and-forget Serve goroutine
// convention.
func (s *Server) Start() error {
	if s.network == "unix" {
		if err := os.Remove(s.address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing socket: %w", err)
		}
	}

	listener, err := net.Listen(s.network, s.address)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", s.network, s.address, err)
	}
	s.listener = listener

	if s.network == "unix" {
		if err := os.Chmod(s.address, 0660); err != nil {
			listener.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
	}

	s.logger.Info("engineproxy listening", "network", s.network, "address", s.address)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests (bounded by ctx) to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down engineproxy")
	err := s.httpServer.Shutdown(ctx)
	if s.network == "unix" {
		os.Remove(s.address)
	}
	return err
}
