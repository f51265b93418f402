// Package server defines shared message types and utility helpers that are
// reused across client and hub logic.
package server

import (
	"errors"
	"strings"

	"github.com/Tyrowin/chatrelay/internal/relay"
)

var (
	// ErrClientClosed is returned when sending to a client whose session has ended.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned when a client's outbound queue cannot take another frame.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// BroadcastMessage encapsulates an event being relayed by the hub, including
// the originating client so it can be excluded from delivery.
type BroadcastMessage struct {
	Sender *Client
	Event  relay.Event
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
