package runtime

import (
	"chat-client/contract"
	"chat-client/domain"
	"chat-client/errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// pendingAck is an in-flight join or leave request.
// previous is the state restored when the request does not succeed.
type pendingAck struct {
	req      *domain.Request
	previous domain.MembershipState
	timer    *time.Timer
}

// RoomMembership tracks, per room name, the join/leave lifecycle.
// A room only moves through NotJoined -> JoinRequested -> Joined and
// Joined -> LeaveRequested -> NotJoined; failed requests roll back.
type RoomMembership struct {
	mu         sync.Mutex
	log        *slog.Logger
	activity   contract.LogSink
	ackTimeout time.Duration
	conn       contract.Conn
	rooms      map[string]domain.MembershipState
	inflight   map[string]*pendingAck // correlation reference -> request
	byRoom     map[string]string      // room -> correlation reference
}

func NewRoomMembership(log *slog.Logger, activity contract.LogSink, ackTimeout time.Duration) *RoomMembership {
	return &RoomMembership{
		log:        log,
		activity:   activity,
		ackTimeout: ackTimeout,
		rooms:      make(map[string]domain.MembershipState),
		inflight:   make(map[string]*pendingAck),
		byRoom:     make(map[string]string),
	}
}

// Join sends a join_room request unless the room is already joined or joining,
// in which case the existing outcome is returned and nothing is sent.
// An empty ref is replaced by a generated one.
func (m *RoomMembership) Join(room, ref string) (*domain.Request, error) {
	return m.request(room, ref, domain.ActionJoin)
}

// Leave sends a leave_room request. Leaving a room that is not joined
// succeeds immediately without contacting the server.
func (m *RoomMembership) Leave(room, ref string) (*domain.Request, error) {
	return m.request(room, ref, domain.ActionLeave)
}

func (m *RoomMembership) request(room, ref string, action domain.Action) (*domain.Request, error) {
	if ref == "" {
		ref = uuid.NewString()
	}

	m.mu.Lock()
	state := m.stateLocked(room)

	if action == domain.ActionLeave && state == domain.NotJoined {
		m.mu.Unlock()
		return domain.ResolvedRequest(ref, domain.Outcome{
			Room: room, Action: action, State: domain.NotJoined,
		}), nil
	}
	if m.conn == nil {
		m.mu.Unlock()
		return nil, m.fail(action, room, errors.ErrNotConnected)
	}

	switch {
	case action == domain.ActionJoin && state == domain.Joined:
		m.mu.Unlock()
		return domain.ResolvedRequest(ref, domain.Outcome{
			Room: room, Action: action, State: domain.Joined,
		}), nil
	case action == domain.ActionJoin && state == domain.JoinRequested,
		action == domain.ActionLeave && state == domain.LeaveRequested:
		existing := m.inflight[m.byRoom[room]].req
		m.mu.Unlock()
		m.log.Debug("Request already in flight", "room", room, "action", action, "ack_id", existing.Ref)
		return existing, nil
	case state == domain.JoinRequested, state == domain.LeaveRequested:
		m.mu.Unlock()
		return nil, m.fail(action, room, errors.ErrRequestPending)
	}
	if _, taken := m.inflight[ref]; taken {
		m.mu.Unlock()
		return nil, m.fail(action, room, fmt.Errorf("%w: reference %s already in use", errors.ErrRequestPending, ref))
	}

	req := domain.NewRequest(ref, room, action)
	channel, next := domain.ChannelJoinRoom, domain.JoinRequested
	if action == domain.ActionLeave {
		channel, next = domain.ChannelLeaveRoom, domain.LeaveRequested
	}
	m.inflight[ref] = &pendingAck{
		req:      req,
		previous: state,
		timer: time.AfterFunc(m.ackTimeout, func() {
			m.resolve(ref, domain.Ack{}, errors.ErrTimeout)
		}),
	}
	m.byRoom[room] = ref
	m.rooms[room] = next
	conn := m.conn
	m.mu.Unlock()

	m.log.Debug("Sending room request", "room", room, "channel", channel, "ack_id", ref)
	if err := conn.Emit(channel, domain.RoomRequest{Room: room}, ref); err != nil {
		m.resolve(ref, domain.Ack{}, fmt.Errorf("%w: %v", errors.ErrNetworkError, err))
	}
	return req, nil
}

// Acknowledge resolves the request carrying ackID.
// It reports false when no such request is in flight.
func (m *RoomMembership) Acknowledge(ackID string, ack domain.Ack) bool {
	return m.resolve(ackID, ack, nil)
}

// resolve applies the outcome of a request: ack when the server answered,
// err when it did not (timeout, transport failure).
func (m *RoomMembership) resolve(ref string, ack domain.Ack, err error) bool {
	m.mu.Lock()
	p, ok := m.inflight[ref]
	if !ok {
		m.mu.Unlock()
		return false
	}
	p.timer.Stop()
	delete(m.inflight, ref)
	delete(m.byRoom, p.req.Room)

	answered := err == nil
	if answered && !ack.Succeeded() {
		err = fmt.Errorf("%w: %s", errors.ErrRejected, ack.Error)
	}

	state := p.previous
	if err == nil {
		state = domain.Joined
		if p.req.Action == domain.ActionLeave {
			state = domain.NotJoined
		}
	}
	if state == domain.NotJoined {
		delete(m.rooms, p.req.Room)
	} else {
		m.rooms[p.req.Room] = state
	}
	m.mu.Unlock()

	// Log first so that a waiter sees the entries once the request resolves.
	if answered {
		m.activity.Append(fmt.Sprintf("Response: %s", ack))
	}
	if err != nil {
		m.fail(p.req.Action, p.req.Room, err)
	}
	p.req.Resolve(domain.Outcome{
		Room: p.req.Room, Action: p.req.Action, State: state, Ack: ack, Err: err,
	})
	return true
}

func (m *RoomMembership) attach(conn contract.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
}

// reset cancels every in-flight request, then puts all rooms back to NotJoined.
// Cancellation happens before any room is reset, and each cancellation is
// logged before its request resolves.
func (m *RoomMembership) reset() []*domain.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := lo.Values(m.inflight)
	sort.Slice(pending, func(i, j int) bool { return pending[i].req.Room < pending[j].req.Room })

	cancelled := make([]*domain.Request, 0, len(pending))
	for _, p := range pending {
		p.timer.Stop()
		m.fail(p.req.Action, p.req.Room, errors.ErrCancelled)
		p.req.Resolve(domain.Outcome{
			Room: p.req.Room, Action: p.req.Action, State: domain.NotJoined, Err: errors.ErrCancelled,
		})
		cancelled = append(cancelled, p.req)
	}
	m.inflight = make(map[string]*pendingAck)
	for room := range m.rooms {
		m.rooms[room] = domain.NotJoined
	}
	m.byRoom = make(map[string]string)
	m.conn = nil
	return cancelled
}

func (m *RoomMembership) stateLocked(room string) domain.MembershipState {
	if state, ok := m.rooms[room]; ok {
		return state
	}
	return domain.NotJoined
}

func (m *RoomMembership) State(room string) domain.MembershipState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(room)
}

func (m *RoomMembership) IsJoined(room string) bool {
	return m.State(room) == domain.Joined
}

// Rooms returns every known room sorted by name.
func (m *RoomMembership) Rooms() []domain.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := lo.MapToSlice(m.rooms, func(name string, state domain.MembershipState) domain.Room {
		return domain.Room{Name: name, State: state}
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// fail records err in the activity log and returns it wrapped with context.
func (m *RoomMembership) fail(action domain.Action, room string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", action, room, err)
	m.log.Warn("Room request failed", "room", room, "action", action, "error", err)
	m.activity.Append(fmt.Sprintf("Error: %v", wrapped))
	return wrapped
}
