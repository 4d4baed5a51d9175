// Package api exposes the session pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rivalmap/rivalmap/internal/checkpoint"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/pipeline"
	"github.com/rivalmap/rivalmap/internal/state"
)

// Handler serves the session endpoints.
type Handler struct {
	pipeline *pipeline.Controller
	log      *logging.Logger
}

// NewHandler creates a handler around a session controller.
func NewHandler(p *pipeline.Controller, log *logging.Logger) *Handler {
	return &Handler{pipeline: p, log: log.WithComponent("api")}
}

// Routes builds the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)
		r.Post("/{sessionID}/message", h.SendMessage)
		r.Get("/{sessionID}/state", h.GetState)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type createSessionRequest struct {
	UserID      string                 `json:"user_id,omitempty"`
	CompanyURL  string                 `json:"company_url"`
	Query       string                 `json:"query,omitempty"`
	UserContext map[string]interface{} `json:"user_context,omitempty"`
}

type messageRequest struct {
	Action  string `json:"action"`
	Content string `json:"content,omitempty"`
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreateSession starts a new analysis session and runs it to the first
// approval gate.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyURL == "" {
		Error(w, http.StatusBadRequest, "company_url is required")
		return
	}

	userContext := map[string]interface{}{}
	for k, v := range req.UserContext {
		userContext[k] = v
	}
	if req.UserID != "" {
		userContext["user_id"] = req.UserID
	}

	h.log.Info("creating session", map[string]interface{}{"company_url": req.CompanyURL})
	id, s, err := h.pipeline.CreateSession(r.Context(), req.CompanyURL, userContext, req.Query)
	if err != nil {
		h.log.Error("session creation failed", map[string]interface{}{"error": err.Error()})
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"session_id":      id,
		"status":          "processing",
		"approval_status": s.ApprovalStatus,
		"message":         lastMessage(s, "Session created"),
	})
}

// SendMessage applies an approval decision to a suspended session.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Action {
	case pipeline.ActionApprove, pipeline.ActionModify, pipeline.ActionReject:
	default:
		Error(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	h.log.Info("session message", map[string]interface{}{"session": sessionID, "action": req.Action})
	s, err := h.pipeline.ResumeSession(r.Context(), sessionID, req.Action, req.Content)
	if err != nil {
		if errors.Is(err, checkpoint.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, fmt.Sprintf("session %s not found", sessionID))
			return
		}
		h.log.Error("session resume failed", map[string]interface{}{"session": sessionID, "error": err.Error()})
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":          "processing",
		"stage":           stageFromStatus(s.ApprovalStatus),
		"approval_status": s.ApprovalStatus,
		"message":         lastMessage(s, "Processing..."),
	})
}

// GetState returns a summary of a session's current state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s, err := h.pipeline.GetSessionState(sessionID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, fmt.Sprintf("session %s not found", sessionID))
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id":             s.SessionID,
		"approval_status":        s.ApprovalStatus,
		"company_url":            s.CompanyURL,
		"research_tasks_count":   len(s.ResearchTasks),
		"research_results_count": len(s.ResearchResults),
		"strategy_drafts_count":  len(s.StrategyDrafts),
		"has_strategic_insights": s.StrategicInsights != nil,
		"messages_count":         len(s.Conversation),
	})
}

// ListSessions returns the ids of all persisted sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.pipeline.Sessions()
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sessions": ids})
}

// stageFromStatus names the pipeline stage a status belongs to.
func stageFromStatus(status string) string {
	switch {
	case strings.Contains(status, "plan"):
		return "planning"
	case strings.Contains(status, "research"):
		return "research"
	case strings.Contains(status, "strategy"):
		return "strategy"
	}
	return "unknown"
}

func lastMessage(s *state.SessionState, fallback string) string {
	if msg := s.LastAssistantMessage(); msg != "" {
		return msg
	}
	return fallback
}
