// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/docker/go-units"

	"github.com/tenantguard/engineproxy/lib/netutil"
)

// copyStream implements spec §4.5: copy the engine's status code and
// response headers to the client first, then copy bytes until either
// side closes, without buffering. It is used for logs, distribution
// lookups, and any other endpoint whose response is a long-lived or
// unbounded byte stream.
//
// resp must still have its body open; copyStream closes it before
// returning. If the client disconnects mid-copy, the engine-side
// response body is closed promptly, releasing the engine's stream.
func copyStream(w http.ResponseWriter, resp *http.Response, logger *slog.Logger, kind ResourceKind, id string) {
	defer resp.Body.Close()

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	written, err := io.Copy(flushingWriter{w: w, flusher: flusher}, resp.Body)
	if err != nil && !netutil.IsExpectedCloseError(err) {
		logger.Warn("stream copy ended with error",
			"resource_kind", kind, "resource_id", id, "bytes", units.HumanSize(float64(written)), "error", err)
		return
	}
	logger.Info("stream copy complete",
		"resource_kind", kind, "resource_id", id, "bytes", units.HumanSize(float64(written)))
}

// flushingWriter flushes the underlying ResponseWriter after every
// write, so a streamed body (log lines, SSE-style frames) reaches the
// client without waiting for an internal buffer to fill.
type flushingWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (f flushingWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}
