package websocket

import (
	"chat-client/domain"
	"chat-client/errors"
	"encoding/json"
	"fmt"
)

// Transport-level channels, never exposed to the core.
const (
	channelConnect      = "connect"
	channelConnected    = "connected"
	channelConnectError = "connect_error"
	channelAck          = "ack"
)

// wireFrame is the JSON text frame exchanged with the server.
type wireFrame struct {
	Channel string          `json:"channel"`
	Ack     string          `json:"ack,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type connectedPayload struct {
	ID string `json:"id"`
}

type connectErrorPayload struct {
	Message string `json:"message"`
}

func encode(channel string, payload any, ackID string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFrame{Channel: channel, Ack: ackID, Payload: raw})
}

func decode(data []byte) (wireFrame, error) {
	var f wireFrame
	err := json.Unmarshal(data, &f)
	return f, err
}

// toDomain maps a wire frame to an ack or to an event on a known channel.
func toDomain(f wireFrame) (domain.Frame, error) {
	if f.Channel == channelAck {
		return domain.Frame{Kind: domain.AckFrame, AckID: f.Ack, Payload: f.Payload}, nil
	}
	channel, err := domain.ParseChannel(f.Channel)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("inbound frame: %w", err)
	}
	return domain.Frame{Kind: domain.EventFrame, Channel: channel, AckID: f.Ack, Payload: f.Payload}, nil
}

func decodePayload(f wireFrame, v any) error {
	if len(f.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrInvalidPayload, f.Channel, err)
	}
	return nil
}
