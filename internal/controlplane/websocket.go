package controlplane

import (
	"net/http"
)

// handleWebSocket mirrors the SSE runtime event bus over a websocket
// connection for debug clients that prefer a persistent socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, ch, snapshot := s.bus.subscribe()
	defer s.bus.unsubscribe(id)

	if err := conn.WriteJSON(map[string]any{"type": "snapshot", "status": s.statusSnapshot(), "events": snapshot}); err != nil {
		return
	}

	for evt := range ch {
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}
}
