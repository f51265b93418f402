// Package server exposes HTTP handlers: the WebSocket upgrade endpoint and
// the static client bundle.
package server

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Server ties the hub, the configuration and the HTTP handlers of one relay
// process together.
type Server struct {
	cfg      *Config
	hub      *Hub
	upgrader websocket.Upgrader
	assets   fs.FS
}

// New creates a Server for cfg serving assets at the document root. A nil
// cfg uses NewConfig defaults.
func New(cfg *Config, assets fs.FS) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg = cfg.sanitize()

	origins := newOriginPolicy(cfg.AllowedOrigins)
	return &Server{
		cfg: cfg,
		hub: NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		assets: assets,
	}
}

// Hub returns the server's hub for lifecycle coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() *Config {
	return s.cfg
}

// WebSocketHandler upgrades GET requests to WebSocket, creates a Client, and
// hands it to the hub which starts its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("remote", r.RemoteAddr).Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.Join(client) {
		client.logger.Info("Hub is shutting down; rejecting connection")
		client.writeCloseMessage()
		client.closeConnection()
	}
}

// StaticHandler serves the client bundle from the document root.
func (s *Server) StaticHandler() http.Handler {
	return http.FileServer(http.FS(s.assets))
}
