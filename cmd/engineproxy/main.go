// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Engineproxy is a per-tenant authorizing reverse proxy in front of a
// container-orchestrator engine's HTTP control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tenantguard/engineproxy/lib/version"
	"github.com/tenantguard/engineproxy/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var listenNetwork string
	var listenAddress string
	var engineSocketPath string
	var showVersion bool

	flag.StringVar(&listenNetwork, "listen-network", "tcp", "network to listen on: tcp or unix")
	flag.StringVar(&listenAddress, "listen-address", "127.0.0.1:2376", "address (host:port for tcp, path for unix) to listen on")
	flag.StringVar(&engineSocketPath, "engine-socket", "/var/run/docker.sock", "path to the engine's Unix-domain control socket")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("engineproxy %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	config, err := proxy.LoadConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger.Info("starting engineproxy",
		"version", version.Info(),
		"tenant", config.TenantLabelValue,
		"name_prefix", config.NamePrefix,
	)

	authStore := proxy.LoadRegistryAuthStore(config.RegistryAuthOverridesPath, logger)
	defer authStore.Close()

	engine, err := proxy.NewEngineClient(engineSocketPath)
	if err != nil {
		return fmt.Errorf("creating engine client: %w", err)
	}

	router := proxy.NewRouter(proxy.RouterConfig{
		Engine:            engine,
		RegistryAuthStore: authStore,
		Config:            config,
		Logger:            logger,
	})

	server, err := proxy.NewServer(proxy.ServerConfig{
		Network: listenNetwork,
		Address: listenAddress,
		Handler: router,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
