// Package hotwire carries hot-reload notifications from a dev server to
// running clients over Server-Sent Events.
//
// The server side is a Broker that fans published payloads out to every
// connected stream and keeps a Log so a reconnecting client can resume
// from its Last-Event-ID. The client side is a Source, which reads the
// stream and dispatches each event's data to the handlers subscribed to
// its event name.
package hotwire

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultChannel is the event name hot payloads are published under.
const DefaultChannel = "hot"

// ErrEmptyPayload is returned for a payload that neither reloads nor
// carries scripts.
var ErrEmptyPayload = errors.New("hotwire: payload has neither reload nor scripts")

// Payload is the message carried by a reload notification. Reload asks
// the client to drop its state and reload entirely; otherwise Scripts
// lists, in order, the asset paths to re-import.
type Payload struct {
	Reload  bool     `json:"reload,omitempty" msgpack:"reload,omitempty"`
	Scripts []string `json:"scripts,omitempty" msgpack:"scripts,omitempty"`
}

// Validate rejects empty payloads.
func (p Payload) Validate() error {
	if !p.Reload && len(p.Scripts) == 0 {
		return ErrEmptyPayload
	}
	return nil
}

// Entry is a published payload as stored in a Log.
type Entry struct {
	ID      uint64    `msgpack:"id"`
	Channel string    `msgpack:"channel"`
	Payload Payload   `msgpack:"payload"`
	Time    time.Time `msgpack:"time"`
}

// EncodeJSON encodes p the way it travels in an SSE data field.
func EncodeJSON(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeJSON decodes an SSE data field into a Payload.
func DecodeJSON(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// EncodeEntry encodes e with msgpack for durable storage.
func EncodeEntry(e Entry) ([]byte, error) {
	return msgpack.Marshal(e)
}

// DecodeEntry decodes an entry written by EncodeEntry.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
