package errors

import "fmt"

// Session and connection failures.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNetworkError       = fmt.Errorf("network error")
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotConnected       = fmt.Errorf("not connected")
	ErrStaleSession       = fmt.Errorf("stale session")
)

// Room and message failures.
var (
	ErrRoomNotJoined  = fmt.Errorf("room not joined")
	ErrRequestPending = fmt.Errorf("another request is pending for this room")
	ErrInvalidMessage = fmt.Errorf("invalid message")
)

// Acknowledgement outcomes that are not a server answer.
var (
	ErrTimeout   = fmt.Errorf("acknowledgement timeout")
	ErrCancelled = fmt.Errorf("request cancelled")
	ErrRejected  = fmt.Errorf("request rejected by server")
)

// Dispatch failures.
var (
	ErrHandlerError   = fmt.Errorf("handler error")
	ErrUnknownChannel = fmt.Errorf("unknown channel")
	ErrInvalidPayload = fmt.Errorf("invalid payload")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
)
