package domain

import (
	"chat-client/errors"
	"fmt"
)

// Channel is a category of inbound or outbound event, distinct from a Room.
// The set is closed: only the constants below are valid.
type Channel string

const (
	ChannelMessages     Channel = "messages"
	ChannelJoinRoom     Channel = "join_room"
	ChannelLeaveRoom    Channel = "leave_room"
	ChannelGroupMessage Channel = "group_message"
	ChannelError        Channel = "error"
)

var channels = []Channel{
	ChannelMessages,
	ChannelJoinRoom,
	ChannelLeaveRoom,
	ChannelGroupMessage,
	ChannelError,
}

// Channels returns every known channel in declaration order.
func Channels() []Channel {
	res := make([]Channel, len(channels))
	copy(res, channels)
	return res
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownChannel, s)
	}
	return c, nil
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelMessages, ChannelJoinRoom, ChannelLeaveRoom, ChannelGroupMessage, ChannelError:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return string(c)
}
