package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"

	"murmur/events"
)

// streamEvents bridges the bus to a server-sent-events stream. Each bus
// lane keeps its delivery policy: ordered events arrive in order,
// levels and transcripts are whatever is freshest when the client
// keeps up.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.bus.Subscribe()
	defer sub.Close()

	write := func(name string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !write(ev.Name, ev.Payload) {
				return
			}
		case levels := <-sub.LevelFrames():
			if !write(events.LevelsEvent, levels) {
				return
			}
		case text := <-sub.Transcripts():
			if !write(events.TranscriptEvent, text) {
				return
			}
		}
	}
}
