// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

// jsonspec.go provides a small path-based accessor over the generic JSON
// document (map[string]any) the validator and stamper operate on.
//
// Service, network, secret, config, and volume bodies are the client's
// native engine-API wire format, forwarded to the engine unchanged except
// at the specific points spec.md names (a name, a label map, a mount's
// VolumeOptions.Labels, ...). Decoding the whole body into the full
// upstream struct family and re-marshaling it would silently drop any
// field those struct definitions don't happen to declare for the
// client's engine API version — the opposite of "faithfully forward the
// remainder" (spec §1). Walking the decoded map and mutating only the
// named paths keeps every other field byte-for-byte as the client sent
// it.

// getPath walks doc following path, returning the value at the final
// key and whether the full path resolved. Any missing key or non-map
// intermediate value reports ok=false.
func getPath(doc map[string]any, path ...string) (any, bool) {
	current := any(doc)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// getString returns the string at path, or "" if the path is absent or
// not a string.
func getString(doc map[string]any, path ...string) string {
	value, ok := getPath(doc, path...)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// getMap returns the map[string]any at path, or nil if absent.
func getMap(doc map[string]any, path ...string) map[string]any {
	value, ok := getPath(doc, path...)
	if !ok {
		return nil
	}
	m, _ := value.(map[string]any)
	return m
}

// getSlice returns the []any at path, or nil if absent.
func getSlice(doc map[string]any, path ...string) []any {
	value, ok := getPath(doc, path...)
	if !ok {
		return nil
	}
	s, _ := value.([]any)
	return s
}

// getStringMap returns the string labels at path as a map[string]string.
// JSON objects decode as map[string]any; label values that aren't
// strings are skipped rather than causing an error, since a malformed
// label is the engine's problem to reject, not the proxy's.
func getStringMap(doc map[string]any, path ...string) map[string]string {
	raw := getMap(doc, path...)
	if raw == nil {
		return nil
	}
	result := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			result[key] = s
		}
	}
	return result
}

// ensureMapAt walks doc creating intermediate map[string]any values as
// needed, then returns the (possibly newly created) map at path. It
// mutates doc in place. If an intermediate value exists but is not a
// map, ensureMapAt overwrites it with an empty map — this only happens
// when the client sent a structurally invalid document, which the
// engine will reject on its own terms.
func ensureMapAt(doc map[string]any, path ...string) map[string]any {
	current := doc
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	return current
}

// stampLabel sets key=value in the label map at path, creating the
// label map and any intermediate objects if necessary. It always wins
// over a client-supplied value at the same key, which is the point:
// the tenant label is never client-controlled.
func stampLabel(doc map[string]any, key, value string, path ...string) {
	labels := ensureMapAt(doc, path...)
	labels[key] = value
}
