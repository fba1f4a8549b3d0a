package domain

import "encoding/json"

type FrameKind int

const (
	EventFrame FrameKind = iota
	AckFrame
)

// Frame is what a transport hands to the core: either an inbound event on a
// channel or the acknowledgement of a request previously emitted with AckID.
type Frame struct {
	Kind    FrameKind
	Channel Channel
	AckID   string
	Payload json.RawMessage
}

// RoomRequest is the join_room and leave_room payload.
type RoomRequest struct {
	Room string `json:"room"`
}

// Ack is the acknowledgement payload. A missing "ok" field counts as success
// unless "error" is set.
type Ack struct {
	OK    *bool           `json:"ok,omitempty"`
	Error string          `json:"error,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// ParseAck never fails: a payload that is not an object is kept raw and
// treated as a success.
func ParseAck(raw json.RawMessage) Ack {
	var ack Ack
	_ = json.Unmarshal(raw, &ack)
	ack.Raw = raw
	return ack
}

func (a Ack) Succeeded() bool {
	if a.Error != "" {
		return false
	}
	return a.OK == nil || *a.OK
}

// String returns the raw payload, as rendered in the activity log.
func (a Ack) String() string {
	if len(a.Raw) == 0 {
		return "{}"
	}
	return string(a.Raw)
}
