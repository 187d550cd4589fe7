// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy implements a per-tenant authorizing reverse proxy in front
// of a container-orchestrator engine's HTTP control API.
//
// A proxy instance is pinned to one tenant identity. It accepts requests
// that look like native engine API calls and forwards them to the engine's
// local Unix socket only after verifying that every resource the request
// touches is owned by the configured tenant. Multi-tenancy is achieved by
// running one proxy process per tenant, each with a distinct tenant label
// value ([Config.TenantLabelValue]).
//
// [EngineClient] issues typed requests against the engine (inspect, list,
// create, update, remove, logs) and exposes a raw byte-level [EngineClient.Dial]
// for passthrough. [RegistryAuthStore] loads registry credentials from a
// JSON file once at startup; it is read-only after load. [Oracle] answers
// ownership questions by inspecting live engine state — it holds no local
// store of its own. [Validator] parses and validates create/update bodies
// for services, networks, secrets, configs, and volumes, then stamps the
// tenant label onto every labelable position before the request reaches
// the engine. [NewRouter] composes all four into the HTTP surface described
// in spec §4.1, and [copyStream] provides the header-first, unbuffered byte
// copy used for logs and other long-lived responses.
package proxy
