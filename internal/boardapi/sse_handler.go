package boardapi

import (
	"fmt"
	"net/http"
)

// StreamBoard streams "projection changed" ticks over SSE. Clients re-fetch
// the board on every tick; the stream itself carries no projection data.
func (h *Handler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	tickChan := h.Emitter.Subscribe(ctx, h.ViewKey)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("client connected to board stream %s", h.ViewKey))

	for {
		select {
		case _, ok := <-tickChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: board\ndata: {\"changed\":true}\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("client disconnected from board stream %s", h.ViewKey))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
