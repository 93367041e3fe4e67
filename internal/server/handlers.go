package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cueline/cueline/internal/app"
	"github.com/cueline/cueline/internal/observe"
	"github.com/cueline/cueline/internal/script/scriptstore"
	"github.com/cueline/cueline/internal/track"
)

// registerRoutes attaches the REST and WebSocket routes to mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Scripts.
	mux.HandleFunc("POST /v1/scripts", s.handleScriptCreate)
	mux.HandleFunc("GET /v1/scripts", s.handleScriptList)
	mux.HandleFunc("GET /v1/scripts/{id}", s.handleScriptGet)
	mux.HandleFunc("PUT /v1/scripts/{id}", s.handleScriptUpdate)
	mux.HandleFunc("DELETE /v1/scripts/{id}", s.handleScriptDelete)

	// Sessions.
	mux.HandleFunc("POST /v1/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /v1/sessions", s.handleSessionList)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleSessionStop)
	mux.HandleFunc("GET /v1/sessions/{id}/position", s.handleSessionPosition)
	mux.HandleFunc("POST /v1/sessions/{id}/jump", s.handleSessionJump)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", s.handleSessionReset)
	mux.HandleFunc("POST /v1/sessions/{id}/transcript", s.handleSessionTranscript)

	// WebSockets.
	mux.HandleFunc("GET /v1/sessions/{id}/feed", s.handleSessionFeed)
	mux.HandleFunc("GET /v1/sessions/{id}/audio", s.handleSessionAudio)
}

// errorBody is the JSON error response shape.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// storeStatus maps scriptstore errors to HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, scriptstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scriptstore.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ---- scripts ----------------------------------------------------------------

// scriptRequest is the request body for script create and update.
type scriptRequest struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

func (s *Server) handleScriptCreate(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	def := &scriptstore.Definition{Title: req.Title, Lines: req.Lines}
	if err := s.scripts.Create(r.Context(), def); err != nil {
		status := storeStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	observe.Logger(r.Context()).Info("script created", "script_id", def.ID, "title", def.Title)
	writeJSON(w, http.StatusCreated, def)
}

func (s *Server) handleScriptList(w http.ResponseWriter, r *http.Request) {
	defs, err := s.scripts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if defs == nil {
		defs = []scriptstore.Definition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleScriptGet(w http.ResponseWriter, r *http.Request) {
	def, err := s.scripts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleScriptUpdate(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	def := &scriptstore.Definition{
		ID:    r.PathValue("id"),
		Title: req.Title,
		Lines: req.Lines,
	}
	if err := s.scripts.Update(r.Context(), def); err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleScriptDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.scripts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	observe.Logger(r.Context()).Info("script deleted", "script_id", r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ---- sessions ---------------------------------------------------------------

// sessionCreateRequest is the request body for session create.
type sessionCreateRequest struct {
	ScriptID string `json:"script_id"`
}

// sessionResponse describes a session together with its current position.
type sessionResponse struct {
	app.SessionInfo
	Position track.Position `json:"position"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess, err := s.manager.Create(r.Context(), req.ScriptID)
	if err != nil {
		if errors.Is(err, scriptstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	pos, err := sess.Position(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionInfo: app.SessionInfo{
			SessionID: sess.ID(),
			ScriptID:  sess.ScriptID(),
			StartedAt: sess.StartedAt(),
		},
		Position: pos,
	})
}

func (s *Server) handleSessionList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Stop(r.PathValue("id")); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session looks up a session by path value, writing a 404 on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	sess, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

// positionResponse is the response body for navigation operations.
type positionResponse struct {
	Position track.Position `json:"position"`
}

func (s *Server) handleSessionPosition(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	pos, err := sess.Position(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{Position: pos})
}

// jumpRequest is the request body for a manual line jump.
type jumpRequest struct {
	Line int `json:"line"`
}

func (s *Server) handleSessionJump(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pos, err := sess.JumpToLine(r.Context(), req.Line)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{Position: pos})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	pos, err := sess.Reset(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{Position: pos})
}

// transcriptRequest is the request body for text-input mode: the full
// recognized text so far, not a delta.
type transcriptRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSessionTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pos, err := sess.UpdateTranscript(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{Position: pos})
}
