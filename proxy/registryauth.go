// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/docker/docker/api/types/registry"

	"github.com/tenantguard/engineproxy/lib/secret"
)

// registryAuthFileEntry is the on-disk shape of one entry in the
// registry-auth overrides file (spec §6): a JSON object keyed by
// registry host.
type registryAuthFileEntry struct {
	Anonymous     bool   `json:"anonymous,omitempty"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	Email         string `json:"email,omitempty"`
	ServerAddress string `json:"serveraddress,omitempty"`
}

// registryCredential is one loaded, in-memory registry credential. The
// password is kept in an mmap-backed secret.Buffer for the lifetime of
// the store; every other field is public-ish metadata already present
// in the config file on disk.
type registryCredential struct {
	anonymous     bool
	username      string
	password      *secret.Buffer
	email         string
	serverAddress string
}

// authConfig renders the credential as the registry.AuthConfig the
// engine's X-Registry-Auth header carries. For anonymous entries the
// password is empty and username is left as configured (usually also
// empty).
func (c *registryCredential) authConfig() registry.AuthConfig {
	config := registry.AuthConfig{
		Username:      c.username,
		Email:         c.email,
		ServerAddress: c.serverAddress,
	}
	if !c.anonymous && c.password != nil {
		config.Password = c.password.String()
	}
	return config
}

// RegistryAuthStore holds the tenant's registry credentials, loaded once
// at startup from a JSON file and read-only for the rest of the
// process's life (spec §4.2, §6). A missing file yields an empty store;
// a malformed file is logged and also yields an empty store — neither
// is fatal, since a proxy with no configured registries can still serve
// the unrestricted read-only surface and unauthenticated image pulls.
type RegistryAuthStore struct {
	mu          sync.RWMutex
	credentials map[string]*registryCredential
}

// LoadRegistryAuthStore reads path and returns a populated store. It
// never returns an error: on any failure to read or parse the file it
// returns an empty store, logging the reason for an unreadable or
// malformed file (a missing file is not logged), matching spec §6's
// "absent file → empty map, non-fatal" and "malformed file is logged
// and yields an empty map".
func LoadRegistryAuthStore(path string, logger *slog.Logger) *RegistryAuthStore {
	store := &RegistryAuthStore{credentials: make(map[string]*registryCredential)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("registry auth overrides file unreadable, continuing with no stored credentials",
				"path", path, "error", err)
		}
		return store
	}

	var raw map[string]registryAuthFileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("registry auth overrides file malformed, continuing with no stored credentials",
			"path", path, "error", err)
		return store
	}

	for host, entry := range raw {
		credential := &registryCredential{
			anonymous:     entry.Anonymous,
			username:      entry.Username,
			email:         entry.Email,
			serverAddress: entry.ServerAddress,
		}
		if entry.Password != "" {
			buffer, err := secret.NewFromBytes([]byte(entry.Password))
			if err != nil {
				logger.Warn("failed to store registry password, treating registry as anonymous",
					"host", host, "error", err)
				credential.anonymous = true
			} else {
				credential.password = buffer
			}
		}
		store.credentials[host] = credential
	}

	logger.Info("loaded registry auth overrides", "path", path, "registries", len(store.credentials))
	return store
}

// Lookup returns the credential stored for host, if any.
func (s *RegistryAuthStore) Lookup(host string) (*registryCredential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[host]
	return credential, ok
}

// Close releases every credential's secret buffer. Call once at process
// shutdown.
func (s *RegistryAuthStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, credential := range s.credentials {
		if credential.password != nil {
			credential.password.Close()
		}
	}
	return nil
}

// encodeRegistryAuthHeader renders config as the base64url-JSON value
// the engine expects in its X-Registry-Auth header.
func encodeRegistryAuthHeader(config registry.AuthConfig) (string, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encoding registry auth config: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}
