// Package server implements the HTTP and WebSocket transport for the chat relay.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, routing, and HTTP handlers. Relay semantics live in
// the relay package; this package only moves frames between sockets and the hub.
package server
