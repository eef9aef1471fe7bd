// Package sse turns executor.Event values into SSE frames and writes
// them with the header and flush discipline an SSE response requires:
// no-cache/keep-alive headers, per-event Write+Flush, using the standard
// library's http.ResponseWriter and http.Flusher to match the rest of
// this server's chi-based HTTP surface.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nodegraph/nodegraph-server/internal/executor"
)

// SetHeaders configures w for an SSE response: no caching, a persistent
// connection, and proxy buffering disabled so frames are not held back
// en route to the client.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

// Frame renders one executor.Event as the JSON payload the wire
// contract specifies for its status, omitting fields that status does
// not carry.
func Frame(e executor.Event) map[string]any {
	frame := map[string]any{"status": string(e.Status)}

	switch e.Status {
	case executor.StatusDone:
		frame["results"] = e.Results
		return frame

	case executor.StatusError:
		frame["error"] = e.Error
		if e.NodeID == "" {
			// Global structural error: no node fields.
			return frame
		}
	}

	if e.NodeID != "" {
		frame["node_id"] = e.NodeID
		frame["node_number"] = e.NodeNumber
		frame["node_name"] = e.NodeName
	}
	if e.Inputs != nil {
		frame["inputs"] = e.Inputs
	}

	switch e.Status {
	case executor.StatusProgress:
		frame["progress"] = e.Progress
		frame["progress_message"] = e.ProgressMessage
	case executor.StatusStreaming:
		frame["streaming_text"] = e.StreamingText
		frame["streaming_chunk"] = e.StreamingChunk
	case executor.StatusCompleted:
		frame["output"] = e.Output
	}

	return frame
}

// Write encodes frame as one `data: <json>\n\n` record and flushes it
// immediately so no event waits behind the next one in a buffer.
func Write(w http.ResponseWriter, flusher http.Flusher, frame map[string]any) error {
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode SSE frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", body); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
