package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/examaid/examaid/engine/domain"
	"github.com/examaid/examaid/engine/rag"
	"github.com/examaid/examaid/pkg/metrics"
)

// Stable error codes returned to clients. Raw error strings stay in the logs.
const (
	codeInvalidRequest = "invalid_request"
	codeEmptyQuestion  = "empty_question"
	codeInternal       = "internal_error"
)

// Answerer runs one question through the pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*rag.Result, error)
}

// HistoryStore persists chat transcripts.
type HistoryStore interface {
	SaveMessage(ctx context.Context, sessionID, role, content string) (domain.Message, error)
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
	ClearSession(ctx context.Context, sessionID string) (int, error)
	Sessions(ctx context.Context) ([]domain.SessionSummary, error)
}

type server struct {
	svc        Answerer
	history    HistoryStore
	reg        *metrics.Registry
	reqTimeout time.Duration
	logger     *slog.Logger

	askTotal    *metrics.Counter
	askDuration *metrics.Histogram
}

func newServer(svc Answerer, history HistoryStore, reg *metrics.Registry, reqTimeout time.Duration, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	return &server{
		svc:        svc,
		history:    history,
		reg:        reg,
		reqTimeout: reqTimeout,
		logger:     logger,
		askTotal:   reg.Counter("examaid_ask_total", "Questions asked"),
		askDuration: reg.Histogram("examaid_ask_duration_seconds", "Question handling latency",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30}),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Post("/ask", s.handleAskForm)
	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/history/{session_id}", s.handleHistory)
	r.Delete("/api/history/{session_id}", s.handleClearHistory)
	r.Get("/api/sessions", s.handleSessions)
	r.Get("/api/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.reg.Handler())
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the JSON response for POST /api/ask.
type AskResponse struct {
	Success          bool            `json:"success"`
	Kind             rag.Kind        `json:"kind"`
	Answer           string          `json:"answer"`
	Sources          []rag.Source    `json:"sources"`
	Images           []rag.Image     `json:"images"`
	SessionID        string          `json:"session_id"`
	UserMessage      *domain.Message `json:"user_message,omitempty"`
	AssistantMessage *domain.Message `json:"assistant_message,omitempty"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, codeEmptyQuestion, "question is required")
		return
	}

	resp, err := s.ask(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not answer question")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ask runs the shared ask flow for the JSON and form endpoints.
func (s *server) ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	s.askTotal.Inc()
	start := time.Now()
	defer s.askDuration.Since(start)

	ctx, cancel := context.WithTimeout(ctx, s.reqTimeout)
	defer cancel()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Best-effort history: a transcript write failure never blocks the answer.
	var userMsg *domain.Message
	if m, err := s.history.SaveMessage(ctx, sessionID, domain.RoleUser, req.Question); err != nil {
		s.logger.Error("save user message failed", "session_id", sessionID, "err", err)
	} else {
		userMsg = &m
	}

	result, err := s.svc.Answer(ctx, req.Question)
	if err != nil {
		s.logger.Error("answer failed", "err", err)
		return AskResponse{}, err
	}

	var assistantMsg *domain.Message
	if m, err := s.history.SaveMessage(ctx, sessionID, domain.RoleAssistant, result.Answer); err != nil {
		s.logger.Error("save assistant message failed", "session_id", sessionID, "err", err)
	} else {
		assistantMsg = &m
	}

	return AskResponse{
		Success:          true,
		Kind:             result.Kind,
		Answer:           result.Answer,
		Sources:          result.Sources,
		Images:           result.Images,
		SessionID:        sessionID,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	messages, err := s.history.History(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("load history failed", "session_id", sessionID, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	deleted, err := s.history.ClearSession(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("clear history failed", "session_id", sessionID, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": deleted,
	})
}

func (s *server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.history.Sessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Success bool      `json:"success"`
	Error   errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorInfo{Code: code, Message: message}})
}
