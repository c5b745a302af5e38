package handlers

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ixra/ixra-api/internal/chat"
)

type chatRequest struct {
	Messages []chat.Turn `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	Proxy        *chat.Proxy
	MaxBodyBytes int64
}

// NewChatHandler wires the handler to a proxy.
func NewChatHandler(proxy *chat.Proxy, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{Proxy: proxy, MaxBodyBytes: maxBodyBytes}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The quota is charged before the body is read.
	admitted := h.Proxy.Admit(ctx, chat.ClientIdentifier(r.Header))
	if admitted.State == chat.StateRejected {
		w.Header().Set("Retry-After", retryAfterSeconds(admitted.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, chatResponse{Content: admitted.Content})
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	var emit func(string) error
	if h.Proxy.Mode() == chat.ModeStream {
		emit = streamWriter(w)
	}

	reply := h.Proxy.Respond(ctx, req.Messages, emit)
	if reply.Started {
		// Headers and text are already on the wire; a mid-stream failure just ends the body.
		return
	}

	if reply.State == chat.StateInvalid {
		writeError(w, http.StatusBadRequest, reply.Content)
		return
	}
	// Nothing streamed yet, so stream mode answers with the JSON shape too.
	writeJSON(w, http.StatusOK, chatResponse{Content: reply.Content})
}

// streamWriter returns an emit callback that sends plain-text chunks and
// flushes after each one. Headers are committed on the first chunk.
func streamWriter(w http.ResponseWriter) func(string) error {
	flusher, _ := w.(http.Flusher)
	started := false
	return func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
