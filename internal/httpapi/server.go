// Package httpapi is the HTTP Surface: three endpoints (schema listing,
// synchronous execute, streaming execute) wired over chi, grounded on
// ternarybob-iter's internal/api/router.go setup — same middleware
// stack, minus CORS, which this server deliberately leaves to an
// external collaborator rather than baking in a policy of its own.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nodegraph/nodegraph-server/internal/executor"
	"github.com/nodegraph/nodegraph-server/internal/observability"
	"github.com/nodegraph/nodegraph-server/internal/ops"
	"github.com/nodegraph/nodegraph-server/internal/sse"
)

// Server is the HTTP Surface. It holds a read-only registry snapshot
// and an observability provider; it owns no execution state of its own
// between requests.
type Server struct {
	registry *ops.Registry
	observer observability.Provider
	router   chi.Router
}

// New builds a Server around a frozen registry.
func New(registry *ops.Registry, observer observability.Provider) *Server {
	s := &Server{registry: registry, observer: observer}
	s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/schemas", s.handleSchemas)
	r.Post("/execute", s.handleExecuteSync)
	r.Post("/execute/stream", s.handleExecuteStream)

	s.router = r
}

// schemaResponse is the wire shape for one registered operation: a flat
// param/return list per entry plus a kind flag, rather than exposing the
// internal ops.Kind tag directly.
type schemaResponse struct {
	Name           string `json:"name"`
	Params         any    `json:"params"`
	Returns        any    `json:"returns"`
	Docstring      string `json:"docstring"`
	Filepath       string `json:"filepath"`
	IsProgressNode bool   `json:"is_progress_node,omitempty"`
	IsStreamNode   bool   `json:"is_stream_node,omitempty"`
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	_, span := s.observer.StartSpan(r.Context(), observability.SpanHTTPRequest,
		observability.String(observability.AttrHTTPMethod, r.Method),
		observability.String(observability.AttrHTTPPath, r.URL.Path))
	defer span.End()

	schemas := s.registry.Schemas()
	out := make([]schemaResponse, 0, len(schemas))
	for _, fs := range schemas {
		out = append(out, schemaResponse{
			Name:           fs.Name,
			Params:         fs.Params,
			Returns:        fs.Returns,
			Docstring:      fs.Docstring,
			Filepath:       fs.Filepath,
			IsProgressNode: fs.Kind == ops.KindProgress,
			IsStreamNode:   fs.Kind == ops.KindStream,
		})
	}

	span.SetAttributes(observability.Int(observability.AttrHTTPStatusCode, http.StatusOK))
	span.SetStatus(observability.StatusOK, "")
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExecuteSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.observer.StartSpan(r.Context(), observability.SpanHTTPRequest,
		observability.String(observability.AttrHTTPMethod, r.Method),
		observability.String(observability.AttrHTTPPath, r.URL.Path))
	defer span.End()
	ctx = observability.ContextWithProvider(ctx, s.observer)

	var req executor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "invalid request body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	g, err := req.ToGraph()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "invalid graph")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	results := make(map[string]any)
	for ev, err := range executor.Execute(ctx, g, s.registry) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "execution failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if ev.Status == executor.StatusDone {
			results = ev.Results
		}
	}

	span.SetStatus(observability.StatusOK, "")
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleExecuteStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.observer.StartSpan(r.Context(), observability.SpanHTTPRequest,
		observability.String(observability.AttrHTTPMethod, r.Method),
		observability.String(observability.AttrHTTPPath, r.URL.Path))
	defer span.End()
	ctx = observability.ContextWithProvider(ctx, s.observer)

	var req executor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "invalid request body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	g, err := req.ToGraph()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "invalid graph")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		err := fmt.Errorf("streaming unsupported by response writer")
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "streaming unsupported")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	sse.SetHeaders(w)

	for ev, err := range executor.Execute(ctx, g, s.registry) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "execution failed")
			sse.Write(w, flusher, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		if writeErr := sse.Write(w, flusher, sse.Frame(ev)); writeErr != nil {
			span.RecordError(writeErr)
			span.SetStatus(observability.StatusError, "write failed")
			return
		}
	}

	span.SetStatus(observability.StatusOK, "")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
