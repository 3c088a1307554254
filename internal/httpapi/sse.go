package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseKeepAlive is the idle comment interval that keeps proxies from
// dropping the stream.
const sseKeepAlive = 25 * time.Second

// handleEvents streams UI commands as server-sent events. The connected
// dashboard applies them: overlay updates, map actions, transcript lines.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	commands, cancel := s.deps.Bus.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	// ?autoplay=1 starts the default tour when a dashboard attaches. A
	// second dashboard joining a running tour must not toggle it off.
	if r.URL.Query().Get("autoplay") == "1" && s.deps.Tours != nil && !s.deps.Tours.Running() {
		if err := s.deps.Tours.Start(""); err != nil {
			s.logger.Warn().Err(err).Msg("autoplay could not start")
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case cmd, open := <-commands:
			if !open {
				return
			}
			data, err := json.Marshal(cmd)
			if err != nil {
				s.logger.Warn().Err(err).Msg("drop unencodable command")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", cmd.Type, data)
			flusher.Flush()
		}
	}
}
