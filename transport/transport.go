// Package transport exposes the run controller over HTTP: a websocket route
// implementing the duplex subscriber protocol from §6, and a synchronous
// POST /invoke endpoint for non-streaming callers.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/stream"
)

// inboundMessage is the single inbound subscriber message shape.
type inboundMessage struct {
	Type     string `json:"type"`
	Input    string `json:"input"`
	ThreadID string `json:"thread_id,omitempty"`
}

// syncRequest is the synchronous invocation endpoint's request shape.
type syncRequest struct {
	Input struct {
		Message string `json:"message"`
	} `json:"input"`
	ThreadID string         `json:"thread_id,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// syncResponse is the synchronous invocation endpoint's response shape.
type syncResponse struct {
	ThreadID   string         `json:"thread_id"`
	Results    map[string]any `json:"results"`
	IsComplete bool           `json:"is_complete"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires a Kernel behind chi routes.
type Server struct {
	Kernel *kernel.Kernel
	Logger logging.Logger
	router chi.Router
}

// NewServer builds a Server with /ws and /invoke wired.
func NewServer(k *kernel.Kernel, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	s := &Server{Kernel: k, Logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleWebsocket)
	r.Post("/invoke", s.handleSyncInvoke)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != "invoke" {
			_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unrecognized message type", "kind": "invalid_input"})
			continue
		}

		events := make(chan stream.WireEvent, 256)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				if err := conn.WriteJSON(ev); err != nil {
					cancel()
					return
				}
			}
		}()

		_, err := s.Kernel.Run(ctx, kernel.InvokeRequest{Input: msg.Input, ThreadID: msg.ThreadID}, events)
		close(events)
		<-done
		if err != nil {
			_ = conn.WriteJSON(map[string]any{"type": "error", "message": err.Error(), "kind": "fatal_kernel"})
		}
	}
}

func (s *Server) handleSyncInvoke(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid_input: malformed request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Minute)
	defer cancel()

	result, err := s.Kernel.Run(ctx, kernel.InvokeRequest{Input: req.Input.Message, ThreadID: req.ThreadID}, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results := make(map[string]any, len(result.Results))
	for name, r := range result.Results {
		results[name] = r
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(syncResponse{
		ThreadID:   result.ThreadID,
		Results:    results,
		IsComplete: result.IsComplete,
	})
}
