package model

import "encoding/json"

// Envelope is the wire shape exchanged with socket clients and across the
// cross-instance bridge. Room and OriginInstanceID are optional: an empty
// Room means "all authenticated sockets"; OriginInstanceID is stamped by
// the publishing instance so bridge receivers can drop their own echoes.
type Envelope struct {
	Event            string          `json:"event"`
	Data             json.RawMessage `json:"data,omitempty"`
	Room             string          `json:"room,omitempty"`
	OriginInstanceID string          `json:"originInstanceId,omitempty"`
}

func NewEnvelope(event string, data any, room, originInstanceID string) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Event:            event,
		Data:             raw,
		Room:             room,
		OriginInstanceID: originInstanceID,
	}, nil
}
