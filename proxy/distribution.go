// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/distribution/reference"

	"github.com/tenantguard/engineproxy/lib/netutil"
)

// registryBroker implements spec §4.1's image-distribution lookup and
// §4.3's registry-auth brokering: resolving an image reference's
// registry host, looking up stored credentials, and running a
// permission probe against the engine's own distribution endpoint
// before a pull-triggering operation is allowed to proceed.
type registryBroker struct {
	engine    *EngineClient
	authStore *RegistryAuthStore
	config    *Config
}

// newRegistryBroker constructs a registryBroker.
func newRegistryBroker(engine *EngineClient, authStore *RegistryAuthStore, config *Config) *registryBroker {
	return &registryBroker{engine: engine, authStore: authStore, config: config}
}

// resolveHost extracts the registry host from an image reference,
// defaulting to the public registry's domain for unqualified references
// (e.g. "nginx" or "library/nginx"), matching how the engine itself
// resolves pull targets.
func resolveHost(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", fmt.Errorf("parsing image reference %q: %w", image, err)
	}
	return reference.Domain(named), nil
}

// stripClientRegistryHeaders removes any client-supplied registry
// credential headers (spec §4.3, invariant in §3): only proxy-injected
// credentials are ever forwarded to the engine.
func stripClientRegistryHeaders(header http.Header) {
	header.Del("X-Registry-Auth")
	header.Del("X-Registry-Config")
}

// resolveAndProbe resolves image's registry, looks up stored
// credentials, and issues the permission probe (a GET against the
// engine's distribution endpoint) using those credentials. It returns
// the still-open engine response on success so callers that need the
// body (the distribution-lookup handler) can stream it onward; callers
// that only need the pass/fail outcome (service create/update) should
// close the body themselves.
//
// authHeaderValue is returned alongside the response so a caller that
// goes on to issue a create/update can reuse the same encoded
// credentials without doing a second lookup.
func (b *registryBroker) resolveAndProbe(ctx context.Context, image string) (authHeaderValue string, resp *http.Response, valErr *validationError) {
	host, err := resolveHost(image)
	if err != nil {
		return "", nil, badRequest("invalid image reference %q", image)
	}

	credential, found := b.authStore.Lookup(host)
	if b.config.OnlyKnownRegistries && !found {
		return "", nil, forbidden("Registry %s is not known", host)
	}

	if found && !credential.anonymous {
		encoded, err := encodeRegistryAuthHeader(credential.authConfig())
		if err != nil {
			return "", nil, badRequest("encoding registry credentials: %v", err)
		}
		authHeaderValue = encoded
	}

	probeHeader := http.Header{}
	if authHeaderValue != "" {
		probeHeader.Set("X-Registry-Auth", authHeaderValue)
	}

	resp, err = b.engine.Dial(ctx, http.MethodGet, "/distribution/"+image+"/json", probeHeader, nil)
	if err != nil {
		return authHeaderValue, nil, &validationError{status: 500, message: err.Error()}
	}
	if resp.StatusCode/100 != 2 {
		message := netutil.ErrorBody(resp.Body)
		resp.Body.Close()
		return authHeaderValue, nil, forbidden("permission probe failed for %s: %s", image, message)
	}
	return authHeaderValue, resp, nil
}

// checkPullPermission runs resolveAndProbe purely for its pass/fail
// outcome (spec §4.3's brokering step ahead of a service create/update)
// and discards the probe response body.
func (b *registryBroker) checkPullPermission(ctx context.Context, image string) (authHeaderValue string, valErr *validationError) {
	authHeaderValue, resp, valErr := b.resolveAndProbe(ctx, image)
	if resp != nil {
		resp.Body.Close()
	}
	return authHeaderValue, valErr
}
