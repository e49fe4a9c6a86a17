package amqp

import (
	"encoding/json"
	"time"

	"spendwise/internal/events"
)

// RoutingPrefix namespaces every routing key published by the app.
const RoutingPrefix = "spendwise."

// EventMessage is the wire form of an events.Event.
type EventMessage struct {
	Kind       string            `json:"kind"`
	Source     string            `json:"source"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewEventMessage(e events.Event) *EventMessage {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &EventMessage{
		Kind:       string(e.Kind),
		Source:     e.Source,
		Attributes: e.Attributes,
		Timestamp:  ts,
	}
}

// RoutingKey is the topic the message is published under, e.g.
// "spendwise.controller.activated".
func (m *EventMessage) RoutingKey() string {
	return RoutingPrefix + m.Kind
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON parses a message body.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
