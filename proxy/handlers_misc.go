// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"net/http"
	"strings"
)

// handlePassthroughGET forwards an unrestricted read-only request
// (_ping, version, info, nodes) verbatim to the engine after stripping
// any client-supplied registry-auth headers (spec §4.1). None of these
// endpoints require an ownership check.
func (rt *Router) handlePassthroughGET(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Clone()
	stripClientRegistryHeaders(header)

	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := rt.engine.Dial(r.Context(), r.Method, path, header, nil)
	if err != nil {
		respondErrorf(w, http.StatusInternalServerError, "%v", err)
		return
	}
	copyStream(w, resp, rt.logger, "", path)
}

// handleDistribution implements spec §4.1's image-distribution lookup:
// resolve the image's registry, look up stored credentials, run the
// permission probe, and stream the engine's own response back to the
// client. The probe call is the forward — there is no second round-trip
// on success.
//
// The route is registered as "GET /distribution/{image...}" because
// ServeMux requires a "..." wildcard to be the pattern's final segment,
// so it cannot express the literal "/distribution/{image}/json" shape
// spec §4.1 names. The wildcard therefore binds everything after
// "/distribution/", including the trailing "/json" — which must be
// stripped back off here before the remainder is treated as the image
// reference, including for images that themselves contain slashes
// (e.g. "registry.example.com/app:1").
func (rt *Router) handleDistribution(w http.ResponseWriter, r *http.Request) {
	image, ok := strings.CutSuffix(r.PathValue("image"), "/json")
	if !ok || image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	_, resp, valErr := rt.broker.resolveAndProbe(r.Context(), image)
	if valErr != nil {
		respondError(w, valErr.status, valErr.message)
		return
	}
	copyStream(w, resp, rt.logger, "", image)
}
