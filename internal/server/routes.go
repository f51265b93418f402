// Package server wires HTTP handlers into a ServeMux via routing helpers.
package server

import "net/http"

// SetupRoutes returns a ServeMux with the WebSocket endpoint on /ws and the
// static client bundle on every other path.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", s.StaticHandler())
	mux.HandleFunc("/ws", s.WebSocketHandler)
	return mux
}
