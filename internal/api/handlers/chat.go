package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hugh/campuschat/internal/api/dto"
	"github.com/hugh/campuschat/internal/api/middleware"
	"github.com/hugh/campuschat/internal/chat"
)

type ChatHandler struct {
	relay *chat.Relay
}

func NewChatHandler(relay *chat.Relay) *ChatHandler {
	return &ChatHandler{relay: relay}
}

// Stream handles POST /api/v1/chat. Tokens are forwarded as SSE data events
// as they arrive; the stream closes with a done event, or an error event if
// the upstream failed after output had already been sent.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req dto.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Streaming unsupported"})
		return
	}

	sink := &sseSink{w: w, flusher: flusher}

	err := h.relay.Respond(r.Context(), userID, req.Message, sink)
	if err != nil && !sink.started {
		// Nothing was sent yet, a plain error response is still possible.
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, chat.ErrNotConfigured):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, chat.ErrUpstream):
			writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Completion service unavailable"})
		default:
			writeTenantError(w, err)
		}
		return
	}

	sink.start()

	if err != nil {
		// Tokens already left the building; all that remains is to tell the
		// caller the reply is incomplete.
		sink.event("error", "stream aborted")
		return
	}

	sink.event("done", "")
}

// sseSink writes tokens as server-sent events. Headers go out lazily on the
// first write so pre-stream failures can still produce an error status.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseSink) Send(token string) error {
	s.start()

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) event(name, message string) {
	if message == "" {
		fmt.Fprintf(s.w, "event: %s\ndata: {}\n\n", name)
	} else {
		payload, _ := json.Marshal(map[string]string{"message": message})
		fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload)
	}
	s.flusher.Flush()
}
