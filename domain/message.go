// Package domain contains core concepts of the chat client.
// This file defines outbound Message payloads.
package domain

// DefaultTitle is the title the console gives to messages typed by hand.
const DefaultTitle = "Manual Notification"

// Message is the group_message payload.
// Body travels as "message" and Kind as "type" on the wire.
type Message struct {
	Title  string `json:"title"`
	Body   string `json:"message" validate:"required"`
	Room   string `json:"room" validate:"required"`
	Kind   string `json:"type,omitempty"`
	Sender string `json:"sender,omitempty"`
}
