//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-client/domain"
	"chat-client/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Dialer opens a transport connection and performs the authentication handshake.
// Errors wrap errors.ErrNetworkError or errors.ErrAuthFailed.
type Dialer interface {
	Dial(ctx context.Context, creds domain.Credentials) (Conn, error)
}

// Conn is an established real-time connection.
// Frames is closed when the connection ends, Err then tells why.
type Conn interface {
	ID() string
	Emit(channel domain.Channel, payload any, ackID string) error
	Frames() <-chan domain.Frame
	Err() error
	Close() error
}

type EventHandler interface {
	Handle(evt event.Inbound) error
}

// LogSink receives every activity log entry, in append order.
type LogSink interface {
	Append(text string) domain.LogEntry
}
