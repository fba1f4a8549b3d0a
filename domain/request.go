package domain

import (
	"context"
	"sync"
)

type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
)

// Outcome is the resolution of a join or leave request.
// State is the room state after resolution; Err is nil on success.
type Outcome struct {
	Room   string
	Action Action
	State  MembershipState
	Ack    Ack
	Err    error
}

// Request is a future for one acknowledgement.
// It resolves exactly once; later Resolve calls are ignored.
type Request struct {
	Ref    string
	Room   string
	Action Action

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func NewRequest(ref, room string, action Action) *Request {
	return &Request{Ref: ref, Room: room, Action: action, done: make(chan struct{})}
}

// ResolvedRequest returns a request that is already complete.
func ResolvedRequest(ref string, outcome Outcome) *Request {
	r := NewRequest(ref, outcome.Room, outcome.Action)
	r.Resolve(outcome)
	return r
}

// Resolve completes the request and reports whether this call did it.
func (r *Request) Resolve(outcome Outcome) bool {
	resolved := false
	r.once.Do(func() {
		r.outcome = outcome
		resolved = true
		close(r.done)
	})
	return resolved
}

func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the outcome and whether the request is resolved yet.
func (r *Request) Outcome() (Outcome, bool) {
	select {
	case <-r.done:
		return r.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the request resolves or ctx is done.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, r.outcome.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
