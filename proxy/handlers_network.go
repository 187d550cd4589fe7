// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"net/http"
)

// handleNetworkCreate validates and stamps a network create body, then
// forwards it to the engine.
func (rt *Router) handleNetworkCreate(w http.ResponseWriter, r *http.Request) {
	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}
	if valErr := rt.validator.ValidateAndStampNetwork(doc, true); valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding network spec: %v", err)
		return
	}
	resp, err := rt.engine.Do(r.Context(), http.MethodPost, "/networks/create", nil, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

// handleNetworkList returns owned networks, honoring the allow-listed
// exception (spec §4.2: allow-listing is honored for reads).
func (rt *Router) handleNetworkList(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.engine.List(r.Context(), KindNetwork, r.URL.RawQuery)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	filtered := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if rt.oracle.documentOwned(KindNetwork, doc) {
			filtered = append(filtered, doc)
			continue
		}
		name := getString(doc, "Name")
		if containsString(rt.config.ServiceAllowListedNetworks, name) {
			filtered = append(filtered, doc)
		}
	}
	respondJSON(w, http.StatusOK, filtered)
}

// handleNetworkInspect returns a network if owned or allow-listed
// (reads honor the allow-list, spec §4.2), 403 otherwise.
func (rt *Router) handleNetworkInspect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwnedNetwork(r.Context(), id, true) {
		respondError(w, http.StatusForbidden, describeMiss(KindNetwork, id))
		return
	}
	doc, found, err := rt.engine.Inspect(r.Context(), KindNetwork, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no such network: "+id)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleNetworkDelete removes a network after confirming ownership.
// Allow-listing never applies to delete (spec §4.2).
func (rt *Router) handleNetworkDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwnedNetwork(r.Context(), id, false) {
		respondError(w, http.StatusForbidden, describeMiss(KindNetwork, id))
		return
	}
	resp, err := rt.engine.Remove(r.Context(), KindNetwork, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}
