// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"log/slog"
	"net/http"
	"strings"
)

// Router composes the engine client, ownership oracle, spec validator,
// and registry broker into the HTTP surface described in spec §4.1. It
// is a plain http.Handler and can be served directly or wrapped by
// whatever TLS-terminating listener the deployment uses (out of scope,
// spec §1).
type Router struct {
	engine    *EngineClient
	oracle    *Oracle
	validator *Validator
	broker    *registryBroker
	config    *Config
	logger    *slog.Logger
	mux       *http.ServeMux
}

// RouterConfig groups the collaborators NewRouter wires together.
type RouterConfig struct {
	Engine            *EngineClient
	RegistryAuthStore *RegistryAuthStore
	Config            *Config
	Logger            *slog.Logger
}

// NewRouter builds the full route table. Every route not registered
// here — most notably anything under /swarm — is unreachable: the
// underlying http.ServeMux returns its own 404 without ever touching
// the engine client, which is exactly spec §4.1's "the proxy is an
// allow-list, not a pass-through" and §8 property 4 ("/swarm* is never
// contacted").
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	oracle := NewOracle(cfg.Engine, cfg.Config)

	rt := &Router{
		engine:    cfg.Engine,
		oracle:    oracle,
		validator: NewValidator(oracle, cfg.Config),
		broker:    newRegistryBroker(cfg.Engine, cfg.RegistryAuthStore, cfg.Config),
		config:    cfg.Config,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	// Read-only, unrestricted surface (spec §4.1).
	rt.mux.HandleFunc("GET /_ping", rt.handlePassthroughGET)
	rt.mux.HandleFunc("HEAD /_ping", rt.handlePassthroughGET)
	rt.mux.HandleFunc("GET /version", rt.handlePassthroughGET)
	rt.mux.HandleFunc("GET /info", rt.handlePassthroughGET)
	rt.mux.HandleFunc("GET /nodes", rt.handlePassthroughGET)
	rt.mux.HandleFunc("GET /nodes/{id}", rt.handlePassthroughGET)

	// Image distribution lookup.
	rt.mux.HandleFunc("GET /distribution/{image...}", rt.handleDistribution)

	// Services.
	rt.mux.HandleFunc("POST /services/create", rt.handleServiceCreate)
	rt.mux.HandleFunc("GET /services", rt.handleServiceList)
	rt.mux.HandleFunc("GET /services/{id}", rt.handleServiceInspect)
	rt.mux.HandleFunc("POST /services/{id}/update", rt.handleServiceUpdate)
	rt.mux.HandleFunc("DELETE /services/{id}", rt.handleServiceDelete)
	rt.mux.HandleFunc("GET /services/{id}/logs", rt.handleServiceLogs)

	// Tasks (read-only, ownership derived from parent service).
	rt.mux.HandleFunc("GET /tasks", rt.handleTaskList)
	rt.mux.HandleFunc("GET /tasks/{id}", rt.handleTaskInspect)
	rt.mux.HandleFunc("GET /tasks/{id}/logs", rt.handleTaskLogs)

	// Networks.
	rt.mux.HandleFunc("POST /networks/create", rt.handleNetworkCreate)
	rt.mux.HandleFunc("GET /networks", rt.handleNetworkList)
	rt.mux.HandleFunc("GET /networks/{id}", rt.handleNetworkInspect)
	rt.mux.HandleFunc("DELETE /networks/{id}", rt.handleNetworkDelete)

	// Secrets.
	rt.mux.HandleFunc("POST /secrets/create", rt.handleSecretCreate)
	rt.mux.HandleFunc("GET /secrets", rt.handleSecretList)
	rt.mux.HandleFunc("GET /secrets/{id}", rt.handleSecretInspect)
	rt.mux.HandleFunc("POST /secrets/{id}/update", rt.handleSecretUpdate)
	rt.mux.HandleFunc("DELETE /secrets/{id}", rt.handleSecretDelete)

	// Configs.
	rt.mux.HandleFunc("POST /configs/create", rt.handleConfigCreate)
	rt.mux.HandleFunc("GET /configs", rt.handleConfigList)
	rt.mux.HandleFunc("GET /configs/{id}", rt.handleConfigInspect)
	rt.mux.HandleFunc("POST /configs/{id}/update", rt.handleConfigUpdate)
	rt.mux.HandleFunc("DELETE /configs/{id}", rt.handleConfigDelete)

	// Volumes.
	rt.mux.HandleFunc("POST /volumes/create", rt.handleVolumeCreate)
	rt.mux.HandleFunc("GET /volumes", rt.handleVolumeList)
	rt.mux.HandleFunc("GET /volumes/{name}", rt.handleVolumeInspect)
	rt.mux.HandleFunc("DELETE /volumes/{name}", rt.handleVolumeDelete)

	return rt
}

// ServeHTTP strips an optional leading API-version segment
// (spec §9 "Optional API-version prefix") and delegates to the route
// table. /foo and /v1.43/foo reach the same handler without the table
// above duplicating every route under a versioned prefix.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if trimmed := stripVersionPrefix(r.URL.Path); trimmed != r.URL.Path {
		r = r.Clone(r.Context())
		r.URL.Path = trimmed
	}
	rt.mux.ServeHTTP(w, r)
}

// stripVersionPrefix removes a leading "/v<digits>[.<digits>]" segment
// from path, if present, and returns the remainder (always starting
// with "/"). Paths without such a segment (including "/version",
// "/volumes", etc. — segments beginning with "v" but not matching the
// version-number shape) are returned unchanged.
func stripVersionPrefix(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return path
	}
	rest := path[2:]
	segment := rest
	remainder := ""
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		segment = rest[:slash]
		remainder = rest[slash:]
	}
	if segment == "" || !isVersionSegment(segment) {
		return path
	}
	if remainder == "" {
		return "/"
	}
	return remainder
}

// isVersionSegment reports whether segment looks like an API version
// number: digits with at most one embedded dot, e.g. "1" or "1.43".
func isVersionSegment(segment string) bool {
	dots := 0
	for _, r := range segment {
		switch {
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		case r < '0' || r > '9':
			return false
		}
	}
	return true
}
