// Package server coordinates client registration, event relay, and
// connection cleanup for the WebSocket transport via the Hub type.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

// Hub owns the relay registry and serialises every change to it. Register,
// unregister and broadcast requests are handled one at a time by Run.
type Hub struct {
	registry   *relay.Registry
	dispatcher *relay.Dispatcher

	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// NewHub creates a Hub with an empty registry. Run must be started before
// clients are registered.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	registry := relay.NewRegistry()
	return &Hub{
		registry:   registry,
		dispatcher: relay.NewDispatcher(registry),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return h.registry.Len()
}

// Registry exposes the hub's registry for inspection.
func (h *Hub) Registry() *relay.Registry {
	return h.registry
}

// Join hands a freshly upgraded client to the hub. It returns false if the
// hub is shutting down, in which case the caller owns the connection.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) submit(msg BroadcastMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		client.Close()
	}
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	h.started.Store(true)
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		log.Warn("Received nil client registration; skipping")
		return
	}

	h.registry.Register(client)
	client.logger.Infof("Client registered. Total clients: %d", h.registry.Len())

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	if client == nil {
		return
	}
	if h.registry.Unregister(client) {
		client.logger.Infof("Client unregistered. Total clients: %d", h.registry.Len())
	}
	client.Close()
}

func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	// A sender that was dropped while its frame was in flight no longer relays.
	if msg.Sender != nil && !h.registry.Contains(msg.Sender) {
		return
	}

	var sender relay.Peer
	if msg.Sender != nil {
		sender = msg.Sender
	}

	if _, err := h.dispatcher.Dispatch(sender, msg.Event); err != nil {
		log.WithField("kind", msg.Event.Kind).Warnf("Broadcast failed: %v", err)
	}
}

// shutdownClients drops every registered client and closes its socket.
func (h *Hub) shutdownClients() {
	log.Info("Shutting down all client connections...")

	peers := h.registry.Drain()
	for _, peer := range peers {
		peer.Close()
		client, ok := peer.(*Client)
		if !ok || client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			client.logger.Errorf("Error closing client connection: %v", err)
		}
	}

	log.Infof("Closed %d client connections", len(peers))
}

// Shutdown stops the hub and waits for all client goroutines to finish, or
// until timeout elapses. It is safe to call on a hub whose Run loop was never
// started.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info("Initiating hub shutdown...")

	h.cancel()
	if h.started.Load() {
		<-h.done
	} else {
		h.shutdownClients()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
