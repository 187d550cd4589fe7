// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"fmt"
	"os"
	"strings"
)

// defaultRegistryAuthPath is where the registry-auth store looks for its
// credentials file when REGISTRY_AUTH_OVERRIDES_PATH is not set.
const defaultRegistryAuthPath = "/run/secrets/registry_auth_overrides"

// defaultAllowedVolumeDrivers is the driver allow-list used when
// ALLOWED_REGULAR_VOLUMES_DRIVERS is not set.
var defaultAllowedVolumeDrivers = []string{"local"}

// defaultAllowedMountTypes is the mount-type allow-list used when
// ALLOWED_VOLUME_TYPES is not set. It matches the full known set, so an
// unconfigured proxy behaves like an unrestricted one modulo the fixed
// "known set" check in the validator.
var defaultAllowedMountTypes = []string{"bind", "volume", "tmpfs", "npipe", "cluster"}

// Config is the process-wide configuration for one tenant's proxy
// instance, loaded once at startup from environment variables (spec §6).
// There is no config file: every field here is either read directly from
// an environment variable or derived from one, and the whole struct is
// immutable after LoadConfig returns.
type Config struct {
	// TenantLabelValue identifies this tenant. Read from TENANT_NAME, or
	// the legacy OWNER_LABEL_VALUE if TENANT_NAME is unset. Required.
	TenantLabelValue string

	// NamePrefix is the required prefix on every newly created resource
	// name. Read from NAME_PREFIX; defaults to TenantLabelValue.
	NamePrefix string

	// AllowedVolumeDrivers is the CSV-parsed ALLOWED_REGULAR_VOLUMES_DRIVERS
	// list. Defaults to {"local"}.
	AllowedVolumeDrivers []string

	// AllowedMountTypes is the CSV-parsed ALLOWED_VOLUME_TYPES list.
	// Defaults to the full known mount-type set.
	AllowedMountTypes []string

	// AllowPortExpose mirrors ALLOW_PORT_EXPOSE ("1" or "true" to enable).
	AllowPortExpose bool

	// ServiceAllowListedNetworks is the CSV-parsed
	// SERVICE_ALLOW_LISTED_NETWORKS set of network names services may
	// reference without ownership.
	ServiceAllowListedNetworks []string

	// OnlyKnownRegistries mirrors ONLY_KNOWN_REGISTRIES.
	OnlyKnownRegistries bool

	// RegistryAuthOverridesPath is the path to the registry credentials
	// file. Defaults to /run/secrets/registry_auth_overrides.
	RegistryAuthOverridesPath string
}

// TenantLabelKey is the fixed reverse-DNS label key both the proxy and any
// cooperating tooling use to mark tenant ownership. It is not
// configurable — spec §3 defines it as a constant known to both sides.
const TenantLabelKey = "com.tenantguard.owner"

// LoadConfig builds a Config from the process environment. It returns an
// error if TENANT_NAME (or the legacy OWNER_LABEL_VALUE) is missing —
// every other variable has a documented default.
func LoadConfig(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	tenant := getenv("TENANT_NAME")
	if tenant == "" {
		tenant = getenv("OWNER_LABEL_VALUE")
	}
	if tenant == "" {
		return nil, fmt.Errorf("TENANT_NAME (or legacy OWNER_LABEL_VALUE) is required")
	}

	namePrefix := getenv("NAME_PREFIX")
	if namePrefix == "" {
		namePrefix = tenant
	}

	config := &Config{
		TenantLabelValue:           tenant,
		NamePrefix:                 namePrefix,
		AllowedVolumeDrivers:       splitCSVOrDefault(getenv("ALLOWED_REGULAR_VOLUMES_DRIVERS"), defaultAllowedVolumeDrivers),
		AllowedMountTypes:          splitCSVOrDefault(getenv("ALLOWED_VOLUME_TYPES"), defaultAllowedMountTypes),
		AllowPortExpose:            parseBoolFlag(getenv("ALLOW_PORT_EXPOSE")),
		ServiceAllowListedNetworks: splitCSVOrDefault(getenv("SERVICE_ALLOW_LISTED_NETWORKS"), nil),
		OnlyKnownRegistries:        parseBoolFlag(getenv("ONLY_KNOWN_REGISTRIES")),
		RegistryAuthOverridesPath:  getenv("REGISTRY_AUTH_OVERRIDES_PATH"),
	}
	if config.RegistryAuthOverridesPath == "" {
		config.RegistryAuthOverridesPath = defaultRegistryAuthPath
	}

	return config, nil
}

// splitCSVOrDefault splits a comma-separated environment value into a
// trimmed, non-empty slice. An empty input returns fallback rather than
// an empty slice, so callers get the documented default.
func splitCSVOrDefault(value string, fallback []string) []string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

// parseBoolFlag reports whether value enables a feature, matching the
// "1" or "true" convention used throughout spec §6.
func parseBoolFlag(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true"
}

// containsString reports whether list contains value, exactly.
func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
