// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import "net/http"

// handleTaskList returns tasks whose parent service is owned (spec
// §4.2: task ownership is derived, never checked against the task's own
// labels). Supplemented feature, see SPEC_FULL.md.
func (rt *Router) handleTaskList(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.engine.List(r.Context(), KindTask, r.URL.RawQuery)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	filtered := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		serviceID := getString(doc, "ServiceID")
		if serviceID != "" && rt.oracle.IsOwned(r.Context(), KindService, serviceID) {
			filtered = append(filtered, doc)
		}
	}
	respondJSON(w, http.StatusOK, filtered)
}

// handleTaskInspect returns a task if its parent service is owned.
func (rt *Router) handleTaskInspect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsTaskOfOwnedService(r.Context(), id) {
		respondError(w, http.StatusForbidden, describeMiss(KindTask, id))
		return
	}
	doc, found, err := rt.engine.Inspect(r.Context(), KindTask, id)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no such task: "+id)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handleTaskLogs streams a task's logs after confirming its parent
// service is owned.
func (rt *Router) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !rt.oracle.IsTaskOfOwnedService(r.Context(), id) {
		respondError(w, http.StatusForbidden, describeMiss(KindTask, id))
		return
	}
	path := "/tasks/" + id + "/logs"
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	resp, err := rt.engine.Dial(r.Context(), http.MethodGet, path, nil, nil)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	copyStream(w, resp, rt.logger, KindTask, id)
}
