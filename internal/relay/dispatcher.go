package relay

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Dispatcher broadcasts events to every registered peer except the sender.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a Dispatcher that reads recipients from registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch relays ev from sender and returns how many peers it was queued for.
// Every relayed kind is handled the same way; only the tag on the wire differs.
func (d *Dispatcher) Dispatch(sender Peer, ev Event) (int, error) {
	switch ev.Kind {
	case KindChatMessage, KindCallOffer, KindCallAnswer, KindICECandidate:
		return d.broadcast(sender, ev)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
}

func (d *Dispatcher) broadcast(sender Peer, ev Event) (int, error) {
	frame, err := Encode(ev)
	if err != nil {
		return 0, fmt.Errorf("encode %q: %w", ev.Kind, err)
	}

	delivered := 0
	for peer := range d.registry.AllExcept(sender) {
		if err := peer.Send(frame); err != nil {
			d.drop(peer, err)
			continue
		}
		delivered++
	}

	log.WithFields(log.Fields{
		"kind":      ev.Kind,
		"delivered": delivered,
	}).Debug("event relayed")
	return delivered, nil
}

// drop treats a peer that could not take a frame as disconnected.
func (d *Dispatcher) drop(peer Peer, cause error) {
	if !d.registry.Unregister(peer) {
		return
	}
	log.WithField("peer", peer.ID()).Warnf("dropping peer after failed send: %v", cause)
	peer.Close()
}
