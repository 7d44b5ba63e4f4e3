package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/san-kum/commlab/internal/logs"
)

const (
	msgPromptRequired = "Prompt is required"
	msgUpstreamFailed = "Failed to get response from Gemini"
)

// maxBodyBytes bounds a chat request body.
const maxBodyBytes = 1 << 20

type ChatRequest struct {
	Prompt string `json:"prompt"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.corsMiddleware(mux)
}

// handleChat forwards the already encoded prompt to the model.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeAPIError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}

	ctx := r.Context()
	if id := r.Header.Get("X-Request-Id"); id != "" {
		ctx = logs.WithTurn(ctx, id)
	}
	start := time.Now()
	text, err := s.remote.Complete(ctx, req.Prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "upstream call failed", "error", err, "elapsed", time.Since(start))
		writeAPIError(w, http.StatusInternalServerError, msgUpstreamFailed)
		return
	}
	s.logger.InfoContext(ctx, "chat served", "elapsed", time.Since(start), "bytes", len(text))

	writeAPIJSON(w, http.StatusOK, ChatResponse{Response: text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeAPIJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, errorResponse{Error: msg})
}
