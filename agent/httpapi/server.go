// Package httpapi exposes the dispatch engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	orchestratorx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

const (
	SessionHeader = "X-Session-Id"

	statusClientClosedRequest = 499
)

// Engine is the part of the orchestrator the HTTP front end drives.
type Engine interface {
	Submit(ctx context.Context, sessionID string, text string, opts orchestratorx.TurnOptions) (orchestratorx.TurnResult, error)
	History(ctx context.Context, sessionID string) ([]contractx.Turn, error)
}

type Server struct {
	router *chi.Mux
	engine Engine
	logger zerolog.Logger
	newID  func() string
}

type TurnRequest struct {
	SessionID   string   `json:"session_id,omitempty"`
	Message     string   `json:"message"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

type TurnResponse struct {
	SessionID      string `json:"session_id"`
	Reply          string `json:"reply"`
	Destination    string `json:"destination"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	Failed         bool   `json:"failed"`
	CorrelationID  string `json:"correlation_id"`
}

type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Turns     []contractx.Turn `json:"turns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(engine Engine, logger zerolog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		router: chi.NewRouter(),
		engine: engine,
		logger: logger,
		newID:  uuid.NewString,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(s.withLogger)
	s.router.Use(middleware.Recoverer)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/v1/turns", s.handleTurn)
	s.router.Get("/v1/sessions/{sessionID}/turns", s.handleHistory)
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = strings.TrimSpace(r.Header.Get(SessionHeader))
	}
	if sid == "" {
		sid = s.newID()
	}
	w.Header().Set(SessionHeader, sid)

	res, err := s.engine.Submit(r.Context(), sid, req.Message, orchestratorx.TurnOptions{
		Model:       strings.TrimSpace(req.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{
		SessionID:      res.SessionID,
		Reply:          res.Reply,
		Destination:    string(res.Destination),
		FallbackReason: res.FallbackReason,
		Failed:         res.Failed,
		CorrelationID:  res.CorrelationID,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionID")

	turns, err := s.engine.History(r.Context(), sid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if turns == nil {
		turns = []contractx.Turn{}
	}
	w.Header().Set(SessionHeader, sid)
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sid, Turns: turns})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	evt := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		evt = zerolog.Ctx(r.Context()).Error()
	}
	evt.Err(err).Int("status", status).Msg("request failed")

	if status == statusClientClosedRequest {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrCancelled):
		return statusClientClosedRequest
	case errors.Is(err, contractx.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
