// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/docker/go-connections/sockets"

	"github.com/tenantguard/engineproxy/lib/netutil"
)

// EngineClient talks to the engine over its local Unix-domain socket. It
// is the only component that opens that socket (spec §6); every other
// component reaches the engine through it.
//
// One *http.Transport is configured at construction to dial the socket —
// matching how sockets.ConfigureTransport wires up the real Docker CLI's
// client. Connections are dialed on demand and reused from the
// transport's pool; nothing is dialed at construction.
type EngineClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewEngineClient constructs an EngineClient dialing the Unix-domain
// socket at socketPath. The client's baseURL ("http://engine.sock") is
// used only to build request URLs; all traffic actually flows over the
// socket regardless of what host name appears in the URL.
func NewEngineClient(socketPath string) (*EngineClient, error) {
	transport := &http.Transport{}
	if err := sockets.ConfigureTransport(transport, "unix", socketPath); err != nil {
		return nil, fmt.Errorf("configuring engine socket transport: %w", err)
	}

	return &EngineClient{
		httpClient: &http.Client{
			Transport: transport,
			// No overall timeout: log streams and long-running pulls are
			// legitimately long-lived. Individual requests are bounded by
			// the caller's context.
			Timeout: 0,
		},
		baseURL: "http://engine.sock",
	}, nil
}

// Do issues an arbitrary request against the engine and returns the raw
// response with its body still open. Callers must close the response
// body. This is the primitive both the typed helpers below and the
// router's raw passthrough (Dial) are built on.
func (c *EngineClient) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building engine request: %w", err)
	}
	if header != nil {
		req.Header = header.Clone()
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// Dial issues an arbitrary request against the engine for byte-level
// passthrough (spec §4.4). It is identical to Do; the distinct name
// documents the caller's intent (streaming forward, not typed
// inspection) at call sites in the router.
func (c *EngineClient) Dial(ctx context.Context, method, path string, header http.Header, body []byte) (*http.Response, error) {
	return c.Do(ctx, method, path, header, body)
}

// Inspect fetches a single resource of kind by id and decodes its JSON
// body into a generic map. Returns (nil, false, nil) on a 404 — this is
// the engine's ordinary "no such resource" response, not a transport
// error. Any other non-2xx status is returned as an error carrying the
// engine's message.
func (c *EngineClient) Inspect(ctx context.Context, kind ResourceKind, id string) (map[string]any, bool, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/"+kind.enginePath()+"/"+id, nil, nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, false, fmt.Errorf("engine inspect %s %s: %s", kind, id, netutil.ErrorBody(resp.Body))
	}

	var doc map[string]any
	if err := netutil.DecodeResponse(resp.Body, &doc); err != nil {
		return nil, false, fmt.Errorf("decoding %s inspect response: %w", kind, err)
	}
	return doc, true, nil
}

// List fetches every resource of kind, decoding the engine's JSON array
// response into a slice of generic maps. rawQuery, if non-empty, is
// forwarded verbatim as the request's query string (including any
// "filters" parameter).
func (c *EngineClient) List(ctx context.Context, kind ResourceKind, rawQuery string) ([]map[string]any, error) {
	path := "/" + kind.enginePath()
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("engine list %s: %s", kind, netutil.ErrorBody(resp.Body))
	}

	var docs []map[string]any
	if err := netutil.DecodeResponse(resp.Body, &docs); err != nil {
		return nil, fmt.Errorf("decoding %s list response: %w", kind, err)
	}
	return docs, nil
}

// Remove deletes the resource of kind identified by id.
func (c *EngineClient) Remove(ctx context.Context, kind ResourceKind, id string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, "/"+kind.enginePath()+"/"+id, nil, nil)
}
