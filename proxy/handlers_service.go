// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"net/http"
)

// handleServiceCreate implements spec §4.3 for service creation: strip
// client registry headers, broker registry credentials for the declared
// image (permission probe first — spec §8 property 6, no create is
// attempted if the probe fails), validate the task template and
// endpoint spec, stamp tenant labels, then forward to the engine.
func (rt *Router) handleServiceCreate(w http.ResponseWriter, r *http.Request) {
	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	var authHeaderValue string
	if image := getString(doc, "TaskTemplate", "ContainerSpec", "Image"); image != "" {
		var probeErr *validationError
		authHeaderValue, probeErr = rt.broker.checkPullPermission(r.Context(), image)
		if probeErr != nil {
			respondError(w, probeErr.status, probeErr.message)
			return
		}
	}

	if valErr := rt.validator.ValidateAndStampService(r.Context(), doc, true); valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding service spec: %v", err)
		return
	}

	header := r.Header.Clone()
	stripClientRegistryHeaders(header)
	if authHeaderValue != "" {
		header.Set("X-Registry-Auth", authHeaderValue)
	}

	resp, err := rt.engine.Do(r.Context(), http.MethodPost, "/services/create", header, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

// handleServiceUpdate mirrors handleServiceCreate for updates: the name
// is not re-validated (spec §4.3), but the task template, endpoint
// spec, and registry brokering rules apply identically, and the
// resource must already be owned.
func (rt *Router) handleServiceUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwned(r.Context(), KindService, id) {
		respondError(w, http.StatusForbidden, describeMiss(KindService, id))
		return
	}

	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	var authHeaderValue string
	if image := getString(doc, "TaskTemplate", "ContainerSpec", "Image"); image != "" {
		var probeErr *validationError
		authHeaderValue, probeErr = rt.broker.checkPullPermission(r.Context(), image)
		if probeErr != nil {
			respondError(w, probeErr.status, probeErr.message)
			return
		}
	}

	if valErr := rt.validator.ValidateAndStampService(r.Context(), doc, false); valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding service spec: %v", err)
		return
	}

	header := r.Header.Clone()
	stripClientRegistryHeaders(header)
	if authHeaderValue != "" {
		header.Set("X-Registry-Auth", authHeaderValue)
	}

	path := "/services/" + id + "/update"
	if version := r.URL.Query().Get("version"); version != "" {
		path += "?version=" + version
	}

	resp, err := rt.engine.Do(r.Context(), http.MethodPost, path, header, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

// handleServiceList fetches every service from the engine and returns
// only the ones this tenant owns.
func (rt *Router) handleServiceList(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.engine.List(r.Context(), KindService, r.URL.RawQuery)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	respondJSON(w, http.StatusOK, filterOwned(rt.oracle, KindService, docs))
}

// handleServiceInspect returns a single service if owned, 403 otherwise
// (spec §4.1: services use 403, not 404, on an ownership miss).
func (rt *Router) handleServiceInspect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, found, err := rt.engine.Inspect(r.Context(), KindService, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no such service: "+id)
		return
	}
	if !rt.oracle.documentOwned(KindService, doc) {
		respondError(w, http.StatusForbidden, describeMiss(KindService, id))
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleServiceDelete removes a service after confirming ownership.
func (rt *Router) handleServiceDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwned(r.Context(), KindService, id) {
		respondError(w, http.StatusForbidden, describeMiss(KindService, id))
		return
	}
	resp, err := rt.engine.Remove(r.Context(), KindService, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

// handleServiceLogs streams a service's logs after confirming
// ownership. Logs are unbounded output (spec §4.5) and must not be
// buffered.
func (rt *Router) handleServiceLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwned(r.Context(), KindService, id) {
		respondError(w, http.StatusForbidden, describeMiss(KindService, id))
		return
	}

	path := "/services/" + id + "/logs"
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	resp, err := rt.engine.Dial(r.Context(), http.MethodGet, path, nil, nil)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	copyStream(w, resp, rt.logger, KindService, id)
}
