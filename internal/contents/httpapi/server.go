// Package httpapi exposes a contents.Manager over HTTP and provides a
// client that speaks the same protocol, so a remote workspace can stand in
// for a local one. Models travel as JSON; backend sentinels travel as error
// codes and are reconstructed on the client side.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/logging"
)

// maxBodySize caps save request bodies.
const maxBodySize = 10 << 20 // 10MB

// Server serves a Manager under /api/contents and, when the manager keeps
// checkpoints, under /api/checkpoints.
type Server struct {
	manager contents.Manager
	router  chi.Router
	logger  *logging.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger routes request failures to l.
func WithLogger(l *logging.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent("httpapi")
		}
	}
}

// NewServer creates a Server with all routes configured.
func NewServer(m contents.Manager, opts ...ServerOption) *Server {
	s := &Server{
		manager: m,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route(contentsRoot, func(r chi.Router) {
		r.Get("/*", s.handleGet)
		r.Put("/*", s.handleSave)
		r.Patch("/*", s.handleRename)
		r.Delete("/*", s.handleDelete)
	})
	r.Route(checkpointsRoot, func(r chi.Router) {
		r.Get("/*", s.handleListCheckpoints)
		r.Post("/*", s.handleCreateCheckpoint)
		r.Put("/*", s.handleRestoreCheckpoint)
		r.Delete("/*", s.handleDeleteCheckpoint)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// contentPath extracts the content path from the route wildcard. chi keeps
// the raw form when the URL carries escapes, so it is unescaped here.
func contentPath(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "*"))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := contentPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad path encoding", Code: codeInvalidPath})
		return
	}

	q := r.URL.Query()
	opts := contents.FetchOptions{
		Type:           contents.Type(q.Get("type")),
		Format:         contents.Format(q.Get("format")),
		IncludeContent: boolParam(q.Get("content")),
	}

	model, err := s.manager.Get(r.Context(), p, opts)
	if err != nil {
		s.writeError(w, "get", p, err)
		return
	}

	reply := wireModel{Model: *model}
	if model.Type == contents.TypeDirectory && opts.IncludeContent {
		entries, err := s.manager.List(r.Context(), p)
		if err != nil {
			s.writeError(w, "list", p, err)
			return
		}
		reply.Entries = entries
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	p, err := contentPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad path encoding", Code: codeInvalidPath})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid JSON: " + err.Error()})
		return
	}

	model, err := s.manager.Save(r.Context(), p, contents.SaveOptions{
		Type:    req.Type,
		Format:  req.Format,
		Content: req.Content,
	})
	if err != nil {
		s.writeError(w, "save", p, err)
		return
	}
	writeJSON(w, http.StatusOK, wireModel{Model: *model})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	p, err := contentPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad path encoding", Code: codeInvalidPath})
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "missing target path", Code: codeInvalidPath})
		return
	}

	model, err := s.manager.Rename(r.Context(), p, req.Path)
	if err != nil {
		s.writeError(w, "rename", p, err)
		return
	}
	writeJSON(w, http.StatusOK, wireModel{Model: *model})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := contentPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad path encoding", Code: codeInvalidPath})
		return
	}
	if err := s.manager.Delete(r.Context(), p); err != nil {
		s.writeError(w, "delete", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	p, cp, ok := s.checkpointRequest(w, r)
	if !ok {
		return
	}
	ckpt, err := cp.CreateCheckpoint(r.Context(), p)
	if err != nil {
		s.writeError(w, "checkpoint", p, err)
		return
	}
	writeJSON(w, http.StatusCreated, ckpt)
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	p, cp, ok := s.checkpointRequest(w, r)
	if !ok {
		return
	}
	list, err := cp.ListCheckpoints(r.Context(), p)
	if err != nil {
		s.writeError(w, "checkpoint", p, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	p, cp, ok := s.checkpointRequest(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "missing checkpoint id"})
		return
	}
	if err := cp.RestoreCheckpoint(r.Context(), p, id); err != nil {
		s.writeError(w, "restore", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	p, cp, ok := s.checkpointRequest(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "missing checkpoint id"})
		return
	}
	if err := cp.DeleteCheckpoint(r.Context(), p, id); err != nil {
		s.writeError(w, "checkpoint", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkpointRequest resolves the path and the manager's Checkpointer side.
// It writes the error reply itself when either is unavailable.
func (s *Server) checkpointRequest(w http.ResponseWriter, r *http.Request) (string, contents.Checkpointer, bool) {
	p, err := contentPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "bad path encoding", Code: codeInvalidPath})
		return "", nil, false
	}
	cp, ok := s.manager.(contents.Checkpointer)
	if !ok {
		s.writeError(w, "checkpoint", p, contents.ErrCheckpointUnsupported)
		return "", nil, false
	}
	return p, cp, true
}

func (s *Server) writeError(w http.ResponseWriter, op, p string, err error) {
	code, status := codeFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %q: %v", op, p, err)
	} else {
		s.logger.Debug("%s %q: %v", op, p, err)
	}
	writeJSON(w, status, errorReply{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func boolParam(v string) bool {
	return v == "1" || v == "true"
}
