// Package domain contains core concepts of the chat client.
// This file defines the Session, the single live connection instance.
package domain

type ConnectionState string

const (
	Disconnected ConnectionState = "DISCONNECTED"
	Connecting   ConnectionState = "CONNECTING"
	Connected    ConnectionState = "CONNECTED"
)

// Session is one authenticated real-time connection instance.
// ID is generated client-side and changes on every connect.
// ConnectionID is assigned by the server once the handshake succeeds.
type Session struct {
	ID           string
	Token        string
	Identity     string
	State        ConnectionState
	ConnectionID string
}

func (s Session) IsConnected() bool {
	return s.State == Connected
}
