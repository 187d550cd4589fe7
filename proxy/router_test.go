// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tenantguard/engineproxy/lib/secret"
)

func newTestRouter(t *testing.T, engine *fakeEngine, config *Config, authStore *RegistryAuthStore) *Router {
	t.Helper()
	client := startFakeEngine(t, engine)
	if authStore == nil {
		authStore = &RegistryAuthStore{credentials: map[string]*registryCredential{}}
	}
	return NewRouter(RouterConfig{
		Engine:            client,
		RegistryAuthStore: authStore,
		Config:            config,
	})
}

func doRequest(rt *Router, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	rt.ServeHTTP(recorder, req)
	return recorder
}

// S1: an owned service create request has the tenant label stamped at
// both the top level and the container-spec level, and the create
// succeeds.
func TestScenarioOwnedServiceCreateStampsLabelsAndSucceeds(t *testing.T) {
	engine := newFakeEngine()
	config := testConfig()
	config.AllowPortExpose = true
	rt := newTestRouter(t, engine, config, nil)

	body := `{"Name":"acme_web","TaskTemplate":{"ContainerSpec":{"Image":"nginx"}}}`
	recorder := doRequest(rt, "POST", "/services/create", body, nil)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", recorder.Code, recorder.Body.String())
	}

	stored, ok := engine.byID["service/acme_web"]
	if !ok {
		t.Fatal("service was not created on the engine")
	}
	labels := getStringMap(stored, "Labels")
	if labels[TenantLabelKey] != "acme" {
		t.Errorf("top-level label = %v, want acme", labels)
	}
	containerLabels := getStringMap(stored, "TaskTemplate", "ContainerSpec", "Labels")
	if containerLabels[TenantLabelKey] != "acme" {
		t.Errorf("container-spec label = %v, want acme", containerLabels)
	}
}

// S2: a cross-tenant volume reference is rejected with 403 and the
// literal message naming the offending volume; no create is issued to
// the engine.
func TestScenarioCrossTenantVolumeReferenceRejected(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindVolume, "other_data", map[string]any{
		"Name":   "other_data",
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	body := `{"Name":"acme_web","TaskTemplate":{"ContainerSpec":{"Image":"nginx",` +
		`"Mounts":[{"Type":"volume","Source":"other_data","Target":"/data"}]}}}`
	recorder := doRequest(rt, "POST", "/services/create", body, nil)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
	var resp engineErrorResponse
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if !strings.Contains(resp.Message, "other_data") {
		t.Errorf("message = %q, want it to name other_data", resp.Message)
	}
	if _, exists := engine.byID["service/acme_web"]; exists {
		t.Error("no service should have been created")
	}
}

// S3: with port exposure disabled, declaring EndpointSpec.Ports is
// rejected with 403 "Exposing ports is not allowed".
func TestScenarioPortExposureDisabledRejected(t *testing.T) {
	engine := newFakeEngine()
	config := testConfig()
	config.AllowPortExpose = false
	rt := newTestRouter(t, engine, config, nil)

	body := `{"Name":"acme_web","TaskTemplate":{"ContainerSpec":{"Image":"nginx"}},` +
		`"EndpointSpec":{"Ports":[{"TargetPort":80}]}}`
	recorder := doRequest(rt, "POST", "/services/create", body, nil)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
	var resp engineErrorResponse
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if !strings.Contains(resp.Message, "not allowed") {
		t.Errorf("message = %q, want it to mention ports are not allowed", resp.Message)
	}
}

// S4: name-prefix enforcement — "foo" is rejected, "acme_foo" succeeds
// with the tenant label stamped.
func TestScenarioNamePrefixEnforcement(t *testing.T) {
	engine := newFakeEngine()
	rt := newTestRouter(t, engine, testConfig(), nil)

	badBody := `{"Name":"foo","TaskTemplate":{"ContainerSpec":{"Image":"nginx"}}}`
	recorder := doRequest(rt, "POST", "/services/create", badBody, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status for unprefixed name = %d, want 400; body = %s", recorder.Code, recorder.Body.String())
	}

	goodBody := `{"Name":"acme_foo","TaskTemplate":{"ContainerSpec":{"Image":"nginx"}}}`
	recorder = doRequest(rt, "POST", "/services/create", goodBody, nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status for prefixed name = %d, want 201; body = %s", recorder.Code, recorder.Body.String())
	}
	stored := engine.byID["service/acme_foo"]
	if getStringMap(stored, "Labels")[TenantLabelKey] != "acme" {
		t.Error("prefixed create should have the tenant label stamped")
	}
}

// S5: a client-supplied X-Registry-Auth header is stripped, and the
// proxy's own stored credentials are injected as a base64url-encoded
// JSON header on the probe issued to the engine.
func TestScenarioRegistryAuthHeaderStrippedAndInjected(t *testing.T) {
	engine := newFakeEngine()
	passwordBuffer, err := secret.NewFromBytes([]byte("hunter2"))
	if err != nil {
		t.Fatalf("creating secret buffer: %v", err)
	}
	t.Cleanup(func() { passwordBuffer.Close() })
	authStore := &RegistryAuthStore{credentials: map[string]*registryCredential{
		"docker.io": {username: "svc-account", password: passwordBuffer},
	}}
	rt := newTestRouter(t, engine, testConfig(), authStore)

	body := `{"Name":"acme_web","TaskTemplate":{"ContainerSpec":{"Image":"nginx"}}}`
	recorder := doRequest(rt, "POST", "/services/create", body, map[string]string{
		"X-Registry-Auth": base64.URLEncoding.EncodeToString([]byte(`{"username":"attacker"}`)),
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", recorder.Code, recorder.Body.String())
	}

	if len(engine.probeLog) != 1 {
		t.Fatalf("expected exactly one distribution probe, got %d", len(engine.probeLog))
	}
	decoded, err := base64.URLEncoding.DecodeString(engine.probeLog[0])
	if err != nil {
		t.Fatalf("probe auth header was not base64url: %v", err)
	}
	var authConfig struct{ Username string }
	json.Unmarshal(decoded, &authConfig)
	if authConfig.Username != "svc-account" {
		t.Errorf("probe used username %q, want svc-account (proxy-stored, not client-supplied)", authConfig.Username)
	}
}

// S6: inspecting a secret that is not owned returns 404 with the exact
// literal body text, no ID interpolated.
func TestScenarioNonOwnedSecretInspectReturns404(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindSecret, "sec1", map[string]any{
		"Spec":   map[string]any{"Name": "other_secret"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/secrets/sec1", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body = %s", recorder.Code, recorder.Body.String())
	}
	var resp engineErrorResponse
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if resp.Message != "Access denied: Secret is not owned." {
		t.Errorf("message = %q, want exact literal text", resp.Message)
	}
}

// Updating a secret or config that belongs to another tenant is denied
// with 403, not the inspect-only 404 exception (spec §4.1, §7:
// notOwnedStatus's 404-for-secrets-and-configs carve-out applies to
// inspect only).
func TestScenarioNonOwnedSecretUpdateReturns403(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindSecret, "sec1", map[string]any{
		"Spec":   map[string]any{"Name": "other_secret"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "POST", "/secrets/sec1/update", `{"Name":"other_secret"}`, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
}

func TestScenarioNonOwnedConfigUpdateReturns403(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindConfig, "cfg1", map[string]any{
		"Spec":   map[string]any{"Name": "other_config"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "POST", "/configs/cfg1/update", `{"Name":"other_config"}`, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
}

// Deleting a secret or config that belongs to another tenant is denied
// with 403, not the inspect-only 404 exception.
func TestScenarioNonOwnedSecretDeleteReturns403(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindSecret, "sec1", map[string]any{
		"Spec":   map[string]any{"Name": "other_secret"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "DELETE", "/secrets/sec1", "", nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
	if _, exists := engine.byID["secret/sec1"]; !exists {
		t.Error("non-owned secret should not have been removed from the engine")
	}
}

func TestScenarioNonOwnedConfigDeleteReturns403(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindConfig, "cfg1", map[string]any{
		"Spec":   map[string]any{"Name": "other_config"},
		"Labels": map[string]any{TenantLabelKey: "other"},
	})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "DELETE", "/configs/cfg1", "", nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", recorder.Code, recorder.Body.String())
	}
	if _, exists := engine.byID["config/cfg1"]; !exists {
		t.Error("non-owned config should not have been removed from the engine")
	}
}

// GET /distribution/{image}/json can only be expressed as ServeMux's
// "{image...}" wildcard, which greedily captures the trailing "/json"
// segment along with the image reference; the handler must strip it
// back off before probing. Configuring the probe response under the
// correctly-stripped image name and asserting it (rather than the
// default) proves the split happened — if the handler instead probed
// "nginx/json" (the unstripped wildcard value), the fake engine would
// have no matching entry and would fall back to its default 200.
func TestScenarioDistributionLookupStripsTrailingJSONSegment(t *testing.T) {
	engine := newFakeEngine()
	engine.allowProbe("nginx", 403)
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/distribution/nginx/json", "", nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (proves the engine was probed with image=%q); body = %s",
			recorder.Code, "nginx", recorder.Body.String())
	}
}

// A registry-qualified, tagged image reference contains slashes of its
// own (e.g. "registry.example.com/app:1"), so the wildcard capture is
// "registry.example.com/app:1/json". Reference parsing must run on the
// image alone, after the trailing "/json" is removed, or every such
// request fails to parse as an image reference at all.
func TestScenarioDistributionLookupHandlesRegistryQualifiedImage(t *testing.T) {
	engine := newFakeEngine()
	engine.allowProbe("registry.example.com/app:1", 200)
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/distribution/registry.example.com/app:1/json", "", nil)
	if recorder.Code == http.StatusBadRequest {
		t.Fatalf("status = 400 (invalid image reference); the trailing /json was not stripped before parsing; body = %s",
			recorder.Body.String())
	}
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", recorder.Code, recorder.Body.String())
	}
}

func TestSwarmEndpointsAreUnreachable(t *testing.T) {
	engine := newFakeEngine()
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/swarm", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("GET /swarm status = %d, want 404 (unrouted)", recorder.Code)
	}
}

func TestListOperationsFilterToOwnedOnly(t *testing.T) {
	engine := newFakeEngine()
	engine.put(KindNetwork, "n1", map[string]any{"Name": "acme_a", "Labels": map[string]any{TenantLabelKey: "acme"}})
	engine.put(KindNetwork, "n2", map[string]any{"Name": "other_b", "Labels": map[string]any{TenantLabelKey: "other"}})
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/networks", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var docs []map[string]any
	json.Unmarshal(recorder.Body.Bytes(), &docs)
	if len(docs) != 1 {
		t.Fatalf("filtered list length = %d, want 1", len(docs))
	}
	if getString(docs[0], "Name") != "acme_a" {
		t.Errorf("filtered list contains %v, want only acme_a", docs)
	}
}

func TestVersionPrefixIsStripped(t *testing.T) {
	engine := newFakeEngine()
	rt := newTestRouter(t, engine, testConfig(), nil)

	recorder := doRequest(rt, "GET", "/v1.43/version", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /v1.43/version status = %d, want 200; body = %s", recorder.Code, recorder.Body.String())
	}
}
