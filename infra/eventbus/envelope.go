package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/amirasaad/tripledger/pkg/domain/events"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	out, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, nil
}

// decodeEnvelope returns the event carried by raw. Unknown types are reported
// with errUnknownEventType so callers can route them to a dead-letter queue.
func decodeEnvelope(raw []byte) (events.EventType, events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	eventType := events.EventType(env.Type)
	constructor, ok := events.EventTypes[eventType]
	if !ok {
		return eventType, nil, fmt.Errorf("%w: %q", errUnknownEventType, env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return eventType, nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return eventType, evt, nil
}
