// Package wire frames events for transport. Every message is an envelope carrying the event's type
// tag and its payload, {"type": "set-wall", "data": {...}}, encoded as JSON text or msgpack binary.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"pathgrid/events"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrUnknownType is returned when an envelope names no known event type.
	ErrUnknownType = errors.New("wire: unknown event type")
	// ErrUnknownCodec is returned by ByName.
	ErrUnknownCodec = errors.New("wire: unknown codec")
)

// Codec encodes and decodes events, and reports which websocket message type carries them.
type Codec interface {
	Encode(events.Event) ([]byte, error)
	Decode([]byte) (events.Event, error)
	MessageType() int
}

// ByName returns the codec registered under name: "json" or "msgpack".
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownCodec)
}

// newEvent resolves an envelope's type tag to an empty event ready to be decoded into.
func newEvent(typ string) (events.Event, error) {
	ev, ok := events.New(events.Type(typ))
	if !ok {
		return nil, fmt.Errorf("%q: %w", typ, ErrUnknownType)
	}
	return ev, nil
}

// JSON is the text codec used by the browser page.
type JSON struct{}

type jsonEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (JSON) Encode(ev events.Event) ([]byte, error) {
	data, err := json.Marshal(events.Deref(ev))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return json.Marshal(jsonEnvelope{Type: string(ev.Type()), Data: data})
}

// Decode accepts an envelope without data for events that carry none.
func (JSON) Decode(msg []byte) (events.Event, error) {
	var envelope jsonEnvelope
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	ev, err := newEvent(envelope.Type)
	if err != nil {
		return nil, err
	}
	if len(envelope.Data) > 0 {
		if err = json.Unmarshal(envelope.Data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
	}
	return events.Deref(ev), nil
}

func (JSON) MessageType() int { return websocket.TextMessage }

// Msgpack is the compact binary codec for programmatic clients.
type Msgpack struct{}

type msgpackEnvelope struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data,omitempty"`
}

func (Msgpack) Encode(ev events.Event) ([]byte, error) {
	data, err := msgpack.Marshal(events.Deref(ev))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return msgpack.Marshal(&msgpackEnvelope{Type: string(ev.Type()), Data: data})
}

func (Msgpack) Decode(msg []byte) (events.Event, error) {
	var envelope msgpackEnvelope
	if err := msgpack.Unmarshal(msg, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	ev, err := newEvent(envelope.Type)
	if err != nil {
		return nil, err
	}
	if len(envelope.Data) > 0 {
		if err = msgpack.Unmarshal(envelope.Data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
	}
	return events.Deref(ev), nil
}

func (Msgpack) MessageType() int { return websocket.BinaryMessage }
