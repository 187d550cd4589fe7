// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/tenantguard/engineproxy/lib/netutil"
)

// forwardResponse copies resp's status code, headers, and body to w. It
// is used for the non-streaming engine calls (create, update, delete)
// whose response body is small enough that buffering costs nothing;
// inspect and list handlers write their decoded document with
// respondJSON, and long-lived responses use copyStream instead.
func forwardResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	body, err := netutil.ReadResponse(resp.Body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "reading engine response: %v", err)
		return
	}

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// decodeJSONBody reads and JSON-decodes r's body into a generic
// document. Returns a *validationError so handlers can propagate it
// through the same 400 path as any other structural failure.
func decodeJSONBody(r *http.Request) (map[string]any, *validationError) {
	data, err := netutil.ReadResponse(r.Body)
	if err != nil {
		return nil, badRequest("reading request body: %v", err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, badRequest("invalid JSON body: %v", err)
	}
	return doc, nil
}

// filterOwned returns the subset of docs the oracle considers owned for
// kind, implementing spec §4.1's "List operations fetch from the engine
// and filter to owned resources before returning."
func filterOwned(oracle *Oracle, kind ResourceKind, docs []map[string]any) []map[string]any {
	owned := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if oracle.documentOwned(kind, doc) {
			owned = append(owned, doc)
		}
	}
	return owned
}
