package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/streambridge"
	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/frame"
)

// protocolHeader marks the framing scheme of streaming responses.
const protocolHeader = "X-Vercel-AI-Data-Stream"

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	SessionID    string         `json:"session_id"`
	Messages     []core.Message `json:"messages"`
	IncludeNodes []string       `json:"include_nodes,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	turn, err := s.bridge.Stream(r.Context(), streambridge.Request{
		SessionID:    req.SessionID,
		Messages:     req.Messages,
		IncludeNodes: req.IncludeNodes,
	})
	if err != nil {
		if errors.Is(err, streambridge.ErrTooManyStreams) {
			writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
			return
		}
		s.logger.Error("Failed to start turn", "error", err)
		writeJSONError(w, http.StatusBadGateway, "upstream refused the stream")
		return
	}
	defer turn.Stream.Close()

	// Headers follow the framing contract: the content type defaults only
	// when nothing upstream in the chain set one, the protocol marker is
	// unconditional, and a started stream is always a 200.
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set(protocolHeader, frame.ProtocolVersion)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := turn.Stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away; closing the reader cancels upstream.
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("Turn ended abruptly", "turn_id", turn.ID, "error", err)
			}
			return
		}
	}
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	turnID := strings.TrimPrefix(r.URL.Path, "/api/turns/")
	if turnID == "" || strings.Contains(turnID, "/") {
		http.NotFound(w, r)
		return
	}

	if err := s.bridge.Cancel(turnID); err != nil {
		if errors.Is(err, streambridge.ErrTurnNotFound) {
			writeJSONError(w, http.StatusNotFound, "turn not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_turns": len(s.bridge.ActiveTurns()),
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
