// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"net/http"
)

// Secrets and configs share an identical create/list/inspect/update/
// delete shape in the engine API and identical validation rules (spec
// §4.3: name + top-level label stamp only). The two resource kinds are
// implemented here as one generic set of handlers parameterized by
// ResourceKind, with a thin per-kind wrapper registered in the router
// so the route table stays legible.

func (rt *Router) createSecretOrConfig(w http.ResponseWriter, r *http.Request, kind ResourceKind) {
	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}

	var stampErr *validationError
	if kind == KindConfig {
		stampErr = rt.validator.ValidateAndStampConfig(doc, true)
	} else {
		stampErr = rt.validator.ValidateAndStampSecret(doc, true)
	}
	if stampErr != nil {
		respondError(w, stampErr.status, stampErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding %s spec: %v", kind, err)
		return
	}
	resp, err := rt.engine.Do(r.Context(), http.MethodPost, "/"+kind.enginePath()+"/create", nil, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

func (rt *Router) listSecretsOrConfigs(w http.ResponseWriter, r *http.Request, kind ResourceKind) {
	docs, err := rt.engine.List(r.Context(), kind, r.URL.RawQuery)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	respondJSON(w, http.StatusOK, filterOwned(rt.oracle, kind, docs))
}

// inspectSecretOrConfig returns the resource if owned, or a 404
// ("Access denied") if it exists but is not owned — spec §4.1 and §8
// scenario S6 both call out this deliberate deviation from the 403 the
// other resource kinds use.
func (rt *Router) inspectSecretOrConfig(w http.ResponseWriter, r *http.Request, kind ResourceKind) {
	id := r.PathValue("id")
	doc, found, err := rt.engine.Inspect(r.Context(), kind, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no such "+string(kind)+": "+id)
		return
	}
	if !rt.oracle.documentOwned(kind, doc) {
		respondError(w, kind.notOwnedStatus(), describeMiss(kind, id))
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (rt *Router) updateSecretOrConfig(w http.ResponseWriter, r *http.Request, kind ResourceKind) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwned(r.Context(), kind, id) {
		// notOwnedStatus's 404 exception is for inspect only (spec §4.1,
		// §7); update always denies with a plain 403.
		respondError(w, http.StatusForbidden, describeMiss(kind, id))
		return
	}

	doc, valErr := decodeJSONBody(r)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}
	var stampErr *validationError
	if kind == KindConfig {
		stampErr = rt.validator.ValidateAndStampConfig(doc, false)
	} else {
		stampErr = rt.validator.ValidateAndStampSecret(doc, false)
	}
	if stampErr != nil {
		respondError(w, stampErr.status, stampErr.message)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "encoding %s spec: %v", kind, err)
		return
	}
	path := "/" + kind.enginePath() + "/" + id + "/update"
	if version := r.URL.Query().Get("version"); version != "" {
		path += "?version=" + version
	}
	resp, err := rt.engine.Do(r.Context(), http.MethodPost, path, nil, body)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

func (rt *Router) deleteSecretOrConfig(w http.ResponseWriter, r *http.Request, kind ResourceKind) {
	id := r.PathValue("id")
	if !rt.oracle.IsOwned(r.Context(), kind, id) {
		// notOwnedStatus's 404 exception is for inspect only (spec §4.1,
		// §7); delete always denies with a plain 403.
		respondError(w, http.StatusForbidden, describeMiss(kind, id))
		return
	}
	resp, err := rt.engine.Remove(r.Context(), kind, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	forwardResponse(w, resp)
}

func (rt *Router) handleSecretCreate(w http.ResponseWriter, r *http.Request) {
	rt.createSecretOrConfig(w, r, KindSecret)
}
func (rt *Router) handleSecretList(w http.ResponseWriter, r *http.Request) {
	rt.listSecretsOrConfigs(w, r, KindSecret)
}
func (rt *Router) handleSecretInspect(w http.ResponseWriter, r *http.Request) {
	rt.inspectSecretOrConfig(w, r, KindSecret)
}
func (rt *Router) handleSecretUpdate(w http.ResponseWriter, r *http.Request) {
	rt.updateSecretOrConfig(w, r, KindSecret)
}
func (rt *Router) handleSecretDelete(w http.ResponseWriter, r *http.Request) {
	rt.deleteSecretOrConfig(w, r, KindSecret)
}

func (rt *Router) handleConfigCreate(w http.ResponseWriter, r *http.Request) {
	rt.createSecretOrConfig(w, r, KindConfig)
}
func (rt *Router) handleConfigList(w http.ResponseWriter, r *http.Request) {
	rt.listSecretsOrConfigs(w, r, KindConfig)
}
func (rt *Router) handleConfigInspect(w http.ResponseWriter, r *http.Request) {
	rt.inspectSecretOrConfig(w, r, KindConfig)
}
func (rt *Router) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	rt.updateSecretOrConfig(w, r, KindConfig)
}
func (rt *Router) handleConfigDelete(w http.ResponseWriter, r *http.Request) {
	rt.deleteSecretOrConfig(w, r, KindConfig)
}
