// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// engineErrorResponse mirrors the engine's own error body shape
// ({"message": "..."}), so a client that already knows how to parse
// engine errors handles proxy-originated errors identically.
type engineErrorResponse struct {
	Message string `json:"message"`
}

// respondError writes a JSON error body in the engine's own shape.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(engineErrorResponse{Message: message})
}

// respondErrorf is like respondError but accepts a format string.
func respondErrorf(w http.ResponseWriter, statusCode int, format string, args ...any) {
	respondError(w, statusCode, fmt.Sprintf(format, args...))
}

// respondJSON writes v as a JSON body with statusCode.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
