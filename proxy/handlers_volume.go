// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"net/http"
)

// handleVolumeCreate validates name, driver, and cluster-volume secret
// ownership (spec §4.3 "Volume create validation"), stamps the tenant
// label, and forwards to the engine.
func (rt *Router) handleVolumeCreate(w http.ResponseWriter, r *http.Request) {
	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}
	if valErr := rt.validator.ValidateAndStampVolume(r.Context(), doc); valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding volume spec: %v", err)
		return
	}
	resp, err := rt.engine.Do(r.Context(), http.MethodPost, "/volumes/create", nil, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

// handleVolumeList returns owned volumes. Because some volume drivers
// do not propagate labels reliably, ownership here (as everywhere for
// volumes) also requires the name-prefix match — see
// [Oracle.documentOwned].
func (rt *Router) handleVolumeList(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.engine.List(r.Context(), KindVolume, r.URL.RawQuery)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	respondJSON(w, http.StatusOK, filterOwned(rt.oracle, KindVolume, docs))
}

// handleVolumeInspect returns a volume if owned, 403 otherwise. Added
// as a supplemented feature (see SPEC_FULL.md) for parity with the
// other four resource kinds' inspect operations.
func (rt *Router) handleVolumeInspect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	doc, found, err := rt.engine.Inspect(r.Context(), KindVolume, name)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no such volume: "+name)
		return
	}
	if !rt.oracle.documentOwned(KindVolume, doc) {
		respondError(w, http.StatusForbidden, describeMiss(KindVolume, name))
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleVolumeDelete removes a volume after confirming ownership.
// Supplemented feature, see SPEC_FULL.md.
func (rt *Router) handleVolumeDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !rt.oracle.IsOwned(r.Context(), KindVolume, name) {
		respondError(w, http.StatusForbidden, describeMiss(KindVolume, name))
		return
	}
	resp, err := rt.engine.Remove(r.Context(), KindVolume, name)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}
