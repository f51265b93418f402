package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a frame is not a JSON envelope with an event tag.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownKind is returned for envelopes whose event tag is not relayed.
	ErrUnknownKind = errors.New("unknown event kind")
)

// Kind is the event tag carried in the envelope's "event" field.
type Kind string

// Relayed event kinds. The wire names match the browser client.
const (
	KindChatMessage  Kind = "chat message"
	KindCallOffer    Kind = "call offer"
	KindCallAnswer   Kind = "call answer"
	KindICECandidate Kind = "ice candidate"
)

var knownKinds = map[Kind]struct{}{
	KindChatMessage:  {},
	KindCallOffer:    {},
	KindCallAnswer:   {},
	KindICECandidate: {},
}

// Valid reports whether k is one of the relayed kinds.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// Event is one inbound unit of work: a kind tag and its opaque payload.
type Event struct {
	Kind    Kind
	Payload json.RawMessage
}

type envelope struct {
	Event *string         `json:"event"`
	Data  json.RawMessage `json:"data"`
}

var nullPayload = json.RawMessage("null")

// Decode parses a frame into an Event. Only the envelope is inspected; the
// data member is kept as raw bytes.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == nil {
		return Event{}, fmt.Errorf("%w: missing event tag", ErrMalformedFrame)
	}

	kind := Kind(*env.Event)
	if !kind.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	payload := env.Data
	if len(payload) == 0 {
		payload = nullPayload
	}
	return Event{Kind: kind, Payload: payload}, nil
}

// Encode builds the outbound frame for ev. The payload is copied verbatim,
// json.Marshal is not used on it because it would re-escape the bytes.
func Encode(ev Event) ([]byte, error) {
	tag, err := json.Marshal(string(ev.Kind))
	if err != nil {
		return nil, err
	}

	payload := ev.Payload
	if len(payload) == 0 {
		payload = nullPayload
	}

	var buf bytes.Buffer
	buf.Grow(len(`{"event":,"data":}`) + len(tag) + len(payload))
	buf.WriteString(`{"event":`)
	buf.Write(tag)
	buf.WriteString(`,"data":`)
	buf.Write(payload)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
