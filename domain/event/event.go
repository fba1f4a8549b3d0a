package event

import (
	"chat-client/domain"
	"chat-client/errors"
	"encoding/json"
	"fmt"
)

// Inbound is an event received from the server on a known channel.
// Each channel has exactly one payload type.
type Inbound interface {
	Channel() domain.Channel
}

// MessageReceived is the "messages" payload. Sender is empty for server notices.
type MessageReceived struct {
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

func (MessageReceived) Channel() domain.Channel { return domain.ChannelMessages }

// From returns the display name of the author.
func (m MessageReceived) From() string {
	if m.Sender == "" {
		return "Server"
	}
	return m.Sender
}

// RoomNotice is broadcast on join_room and leave_room when a member comes or goes.
type RoomNotice struct {
	Kind domain.Channel `json:"-"`
	Room string         `json:"room"`
	User string         `json:"user,omitempty"`
}

func (r RoomNotice) Channel() domain.Channel { return r.Kind }

type GroupMessage struct {
	domain.Message
}

func (GroupMessage) Channel() domain.Channel { return domain.ChannelGroupMessage }

// ServerError keeps the error object untouched since its shape is server-defined.
type ServerError struct {
	Raw json.RawMessage
}

func (ServerError) Channel() domain.Channel { return domain.ChannelError }

func (e ServerError) Error() string {
	if len(e.Raw) == 0 {
		return "{}"
	}
	return string(e.Raw)
}

// Decode turns a raw payload into the typed event of its channel.
func Decode(channel domain.Channel, payload json.RawMessage) (Inbound, error) {
	switch channel {
	case domain.ChannelMessages:
		var evt MessageReceived
		if err := unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	case domain.ChannelJoinRoom, domain.ChannelLeaveRoom:
		evt := RoomNotice{Kind: channel}
		if err := unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	case domain.ChannelGroupMessage:
		var evt GroupMessage
		if err := unmarshal(payload, &evt.Message); err != nil {
			return nil, err
		}
		return evt, nil
	case domain.ChannelError:
		return ServerError{Raw: payload}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownChannel, channel)
	}
}

func unmarshal(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
