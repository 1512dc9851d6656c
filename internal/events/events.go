package events

import (
	"encoding/json"
	"time"
)

const (
	ApplicationCreated = "application_created"
	ApplicationUpdated = "application_updated"
	ApplicationDeleted = "application_deleted"
)

const version = 1

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func NewEvent(reqID, typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:      typ,
		Version:   version,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
}

// MakeEvent returns the JSON encoding of a new event.
func MakeEvent(reqID, typ string, data any) string {
	b, _ := json.Marshal(NewEvent(reqID, typ, data))
	return string(b)
}
