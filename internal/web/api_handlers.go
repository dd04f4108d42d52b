package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/realtime"
)

// changesPath serves the WebSocket change feed.
const changesPath = "/api/comments/changes"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding error response", "err", err)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "err", err)
	}
}

// decodeBody reads a size-limited JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// commentError maps repository errors to status codes.
func commentError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, comment.ErrInvalid):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, comment.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error(action, "err", err)
		apiError(w, action+" failed", http.StatusInternalServerError)
	}
}

// handleAPIComments routes /api/comments requests.
func (s *Server) handleAPIComments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.apiListComments(w)
	case http.MethodPost:
		s.apiAddComment(w, r)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAPIComment routes /api/comments/{id}. Reads are public;
// changes go through the API key check.
func (s *Server) handleAPIComment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, ok := commentID(w, r)
		if !ok {
			return
		}
		s.apiGetComment(w, id)
	case http.MethodPatch, http.MethodDelete:
		s.moderated.ServeHTTP(w, r)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleModeration serves authenticated PATCH and DELETE requests.
func (s *Server) handleModeration(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodPatch {
		s.apiUpdateComment(w, r, id)
		return
	}
	s.apiDeleteComment(w, id)
}

// commentID parses the {id} segment of /api/comments/{id}.
func commentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/comments/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		apiError(w, "invalid comment ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// apiListComments returns every comment, newest first.
func (s *Server) apiListComments(w http.ResponseWriter) {
	comments, err := s.commentRepo.List()
	if err != nil {
		commentError(w, "listing comments", err)
		return
	}
	if comments == nil {
		comments = make([]*comment.Comment, 0)
	}
	apiJSON(w, comments, http.StatusOK)
}

// apiGetComment returns one comment.
func (s *Server) apiGetComment(w http.ResponseWriter, id int64) {
	c, err := s.commentRepo.Get(id)
	if err != nil {
		commentError(w, "loading comment", err)
		return
	}
	apiJSON(w, c, http.StatusOK)
}

// apiAddComment stores an anonymous comment and announces it on the feed.
func (s *Server) apiAddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Body      string `json:"comment"`
		SessionID string `json:"user_id_session"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.commentRepo.Add(req.Name, req.Body, strings.TrimSpace(req.SessionID))
	if err != nil {
		commentError(w, "adding comment", err)
		return
	}

	s.hub.Publish(realtime.Insert{Comment: *c})
	apiJSON(w, c, http.StatusCreated)
}

// apiUpdateComment edits a comment's name and/or body.
func (s *Server) apiUpdateComment(w http.ResponseWriter, r *http.Request, id int64) {
	var patch comment.Patch
	if !decodeBody(w, r, &patch) {
		return
	}

	c, err := s.commentRepo.Update(id, patch)
	if err != nil {
		commentError(w, "updating comment", err)
		return
	}

	s.hub.Publish(realtime.Update{Comment: *c})
	apiJSON(w, c, http.StatusOK)
}

// apiDeleteComment removes a comment.
func (s *Server) apiDeleteComment(w http.ResponseWriter, id int64) {
	if err := s.commentRepo.Delete(id); err != nil {
		commentError(w, "deleting comment", err)
		return
	}

	s.hub.Publish(realtime.Delete{ID: id})
	w.WriteHeader(http.StatusNoContent)
}
