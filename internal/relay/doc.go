// Package relay implements the transport-agnostic core of the chat relay:
// the Registry of open peers, the wire envelope codec, and the Dispatcher
// that fans every inbound event out to all peers except its originator.
//
// Payloads are opaque. The relay reads only the envelope's event tag and
// forwards the data bytes exactly as received.
package relay
