// Package server implements the chat HTTP API.
//
// Endpoints:
//   - GET  /        liveness message
//   - POST /chat    {message, history} → {response}
//   - GET  /health  corpus status
//   - GET  /debug   corpus keys and the capability provider URL
//
// Information Hiding:
// - Middleware ordering hidden
// - Client identification for rate limiting hidden
// - Internal error detail kept out of responses
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sahana359/sahanarajashekara/agent"
	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/ratelimit"
)

// MaxBodyBytes caps the size of a /chat request body.
const MaxBodyBytes = 1 << 20

// Answerer runs one chat turn. *agent.Agent implements it.
type Answerer interface {
	Execute(ctx context.Context, message string, history []agent.HistoryEntry) (agent.Response, error)
}

// Options configures a Server.
type Options struct {
	Agent  Answerer
	Corpus *corpus.Snapshot

	// MCPURL is reported by /debug with any credentials removed.
	MCPURL string

	// AllowedOrigins lists browser origins allowed by CORS. "*" allows any.
	AllowedOrigins []string

	// Limiter guards /chat. Nil disables rate limiting.
	Limiter *ratelimit.Limiter

	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	agent   Answerer
	corpus  *corpus.Snapshot
	mcpURL  string
	origins map[string]bool
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	handler http.Handler
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string               `json:"message"`
	History []agent.HistoryEntry `json:"history"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string   `json:"status"`
	DataLoaded bool     `json:"data_loaded"`
	DataSource string   `json:"data_source"`
	Resources  []string `json:"resources"`
}

// DebugResponse is the body of GET /debug.
type DebugResponse struct {
	PortfolioDataKeys []string `json:"portfolio_data_keys"`
	MCPURL            string   `json:"mcp_url"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap := opts.Corpus
	if snap == nil {
		snap = corpus.Empty()
	}

	origins := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}

	s := &Server{
		agent:   opts.Agent,
		corpus:  snap,
		mcpURL:  opts.MCPURL,
		origins: origins,
		limiter: opts.Limiter,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /debug", s.handleDebug)

	s.handler = s.withRequestID(s.withLogging(s.withCORS(mux)))
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "Portfolio Chat API is running"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, r, http.StatusBadRequest, "message is required")
		return
	}

	// Only well-formed requests count against the client's quota.
	if s.limiter != nil {
		decision, err := s.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			s.logger.Error("rate limit check failed", "request_id", reqID, "error", err)
		}
		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter/time.Second)))
			detail := "Too many requests. Please slow down."
			if decision.Reason == ratelimit.ReasonQuota {
				detail = "Daily message limit reached. Please come back tomorrow."
			}
			s.errorResponse(w, r, http.StatusTooManyRequests, detail)
			return
		}
	}

	resp, err := s.agent.Execute(r.Context(), req.Message, req.History)
	if err != nil {
		s.logger.Error("agent run failed", "request_id", reqID, "error", err)
		s.errorResponse(w, r, http.StatusInternalServerError, "Something went wrong while answering. Please try again.")
		return
	}

	s.logger.Info("chat answered",
		"request_id", reqID,
		"outcome", resp.Type.String(),
		"model_calls", resp.Metadata.ModelCalls,
		"tool_calls", len(resp.Metadata.ToolCalls),
		"duration_ms", resp.Metadata.ExecutionTimeMs,
	)
	s.writeJSON(w, http.StatusOK, ChatResponse{Response: resp.Text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		DataLoaded: s.corpus.Loaded(),
		DataSource: string(s.corpus.Source()),
		Resources:  nonNil(s.corpus.Keys()),
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, DebugResponse{
		PortfolioDataKeys: nonNil(s.corpus.Keys()),
		MCPURL:            RedactURL(s.mcpURL),
	})
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, code int, detail string) {
	s.writeJSON(w, code, ErrorResponse{Detail: detail, RequestID: RequestID(r.Context())})
}

// RedactURL removes userinfo and query from raw. An empty URL reports
// "not set"; a stdio command line is returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return "not set"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	if u.Host == "" {
		return raw
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// clientKey identifies the caller for rate limiting. The first
// X-Forwarded-For hop wins over the socket address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
