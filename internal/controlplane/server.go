// Package controlplane implements the HTTP + SSE Control Plane: bearer
// scoped read/mutation endpoints, a runtime event SSE bus, mutation
// rate limiting, and a websocket debug mirror of the same event stream.
package controlplane

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const maxRequestBodyBytes = 512_000

// Handlers are the gateway-provided callbacks the control plane routes
// dispatch to. Each corresponds to one row of the URL surface table.
type Handlers struct {
	Status          func() any
	ListSessions    func(limit int) any
	CreateSession   func(fromSessionID string) (any, error)
	GetSession      func(id string) (any, error)
	SwitchSession   func(id string, body json.RawMessage) error
	SetRoute        func(id string, body json.RawMessage) error
	SetSkills       func(id string, body json.RawMessage) error
	RetentionStatus func() any
	PruneSessions   func(dryRun bool) (any, error)
	ChatSend        func(body json.RawMessage) (any, error)
	ProvidersStatus func() any
	SubagentStart   func(body json.RawMessage) (any, error)
	SubagentCancel  func(id string) error
	SubagentList    func(sessionID string, limit int) any
	SubagentLogs    func(id string) (any, error)
	BackupCreate    func() (any, error)
	BackupRestore   func(body json.RawMessage) (any, error)
	RuntimeRestart  func(body json.RawMessage) (any, error)
}

// Server is the control-plane HTTP server.
type Server struct {
	auth        AuthConfig
	rateLimiter *mutationRateLimiter
	bus         *eventBus
	handlers    Handlers
	upgrader    websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
}

// New creates a control-plane Server. mutationRateLimitPerMinute <= 0
// uses the built-in default.
func New(auth AuthConfig, mutationRateLimitPerMinute int, handlers Handlers) *Server {
	return &Server{
		auth:        auth,
		rateLimiter: newMutationRateLimiter(mutationRateLimitPerMinute),
		bus:         newEventBus(),
		handlers:    handlers,
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Publish fans a runtime event out to all SSE and websocket subscribers.
func (s *Server) Publish(eventType string, payload any) {
	s.bus.Publish(eventType, payload)
}

func (s *Server) statusSnapshot() any {
	if s.handlers.Status == nil {
		return map[string]any{}
	}
	return s.handlers.Status()
}

// BuildMux registers every route in the URL surface table.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/status", s.withAuth(ScopeRead, s.handleStatus))
	mux.HandleFunc("/events", s.withAuth(ScopeRead, s.handleEvents))
	mux.HandleFunc("/ws", s.withAuth(ScopeRead, s.handleWebSocket))
	mux.HandleFunc("/sessions", s.withAuth(ScopeRead, s.handleSessionsCollection))
	mux.HandleFunc("/sessions/retention", s.withAuth(ScopeRead, s.handleRetention))
	mux.HandleFunc("/sessions/prune", s.withMutation(s.handlePrune))
	mux.HandleFunc("/chat/send", s.withMutation(s.handleChatSend))
	mux.HandleFunc("/providers/status", s.withAuth(ScopeRead, s.handleProvidersStatus))
	mux.HandleFunc("/subagents/start", s.withMutation(s.handleSubagentStart))
	mux.HandleFunc("/subagents/jobs", s.withAuth(ScopeRead, s.handleSubagentList))
	mux.HandleFunc("/backup/create", s.withMutation(s.handleBackupCreate))
	mux.HandleFunc("/backup/restore", s.withMutation(s.handleBackupRestore))
	mux.HandleFunc("/runtime/restart", s.withMutation(s.handleRuntimeRestart))
	mux.HandleFunc("/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("/subagents/jobs/", s.handleSubagentSubroutes)

	s.mux = mux
	return mux
}

// Start binds and serves the control plane until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.BuildMux()}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withAuth enforces the auth resolution and scope check for a read (or
// admin-readable) endpoint.
func (s *Server) withAuth(minScope Scope, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, _ := resolveAuth(r, s.auth)
		if scope == ScopeNone {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if minScope == ScopeAdmin && scope != ScopeAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// withMutation additionally enforces admin scope and the fixed-window
// mutation rate limit, and caps the request body.
func (s *Server) withMutation(next http.HandlerFunc) http.HandlerFunc {
	return s.withAuth(ScopeAdmin, func(w http.ResponseWriter, r *http.Request) {
		scope, tokenPrefix := resolveAuth(r, s.auth)
		key := string(scope) + "|" + remoteHost(r) + "|" + tokenPrefix
		if !s.rateLimiter.Allow(key) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		next(w, r)
	})
}

func readJSONBody(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
