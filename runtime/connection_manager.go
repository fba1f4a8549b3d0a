// Package runtime owns the live chat session: connection lifecycle, room
// membership and message dispatch. It holds no UI logic; the caller only
// invokes operations and reads snapshots.
package runtime

import (
	"chat-client/auth"
	"chat-client/contract"
	"chat-client/domain"
	"chat-client/errors"
	"chat-client/runtime/workers"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Callbacks observe the session lifecycle. They run outside any lock and
// may call back into the manager.
type Callbacks struct {
	OnConnected    func(session domain.Session)
	OnDisconnected func(session domain.Session, cause error)
	OnError        func(err error)
}

// ConnectionManager owns the lifecycle of one real-time connection.
// Reconnection is always caller-initiated: a failed or closed session stays
// Disconnected until Connect is called again.
type ConnectionManager struct {
	mu               sync.Mutex
	log              *slog.Logger
	dialer           contract.Dialer
	activity         contract.LogSink
	membership       *RoomMembership
	bus              *MessageBus
	handshakeTimeout time.Duration
	callbacks        Callbacks

	session    domain.Session
	live       bool
	conn       contract.Conn
	cancelDial context.CancelFunc
	supervisor *workers.Supervisor
}

func NewConnectionManager(log *slog.Logger, dialer contract.Dialer, activity contract.LogSink,
	membership *RoomMembership, bus *MessageBus, handshakeTimeout time.Duration) *ConnectionManager {
	bus.Guard(membership.IsJoined)
	return &ConnectionManager{
		log:              log,
		dialer:           dialer,
		activity:         activity,
		membership:       membership,
		bus:              bus,
		handshakeTimeout: handshakeTimeout,
		session:          domain.Session{State: domain.Disconnected},
	}
}

func (m *ConnectionManager) SetCallbacks(callbacks Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = callbacks
}

// teardown is what is left to do once a session has been detached under lock.
type teardown struct {
	session   domain.Session
	conn      contract.Conn
	sup       *workers.Supervisor
	cancelled []*domain.Request
	cause     error
}

// Connect replaces any live session by a new one and starts the handshake.
// It returns as soon as the session is Connecting; the result is reported
// through the callbacks. An empty identity falls back to the token's e-mail
// claim, then to domain.DefaultIdentity.
func (m *ConnectionManager) Connect(token, identity string) (*Handle, error) {
	if identity == "" {
		identity = auth.IdentityFromToken(token)
	}
	if identity == "" {
		identity = domain.DefaultIdentity
	}
	creds := domain.Credentials{Token: token, Identity: identity}
	if err := auth.ValidateCredentials(creds); err != nil {
		m.reportError(err)
		return nil, err
	}

	m.mu.Lock()
	var previous *teardown
	if m.live {
		t := m.detachLocked(nil)
		previous = &t
	}
	m.session = domain.Session{
		ID:       uuid.NewString(),
		Token:    token,
		Identity: identity,
		State:    domain.Connecting,
	}
	m.live = true
	session := m.session
	ctx, cancel := context.WithTimeout(context.Background(), m.handshakeTimeout)
	m.cancelDial = cancel
	m.mu.Unlock()

	if previous != nil {
		m.log.Info("Superseding live session", "session_id", previous.session.ID)
		m.finish(*previous)
	}

	m.log.Info("Connecting", "session_id", session.ID, "identity", identity)
	go m.handshake(ctx, cancel, session, creds)
	return &Handle{manager: m, sessionID: session.ID}, nil
}

func (m *ConnectionManager) handshake(ctx context.Context, cancel context.CancelFunc,
	session domain.Session, creds domain.Credentials) {
	conn, err := m.dialer.Dial(ctx, creds)
	if err != nil && !isTaxonomy(err) {
		err = fmt.Errorf("%w: %v", errors.ErrNetworkError, err)
	}
	cancel()

	m.mu.Lock()
	if !m.isCurrentLocked(session.ID) || m.session.State != domain.Connecting {
		m.mu.Unlock()
		m.log.Debug("Dropping handshake of a replaced session", "session_id", session.ID)
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		m.session.State = domain.Disconnected
		m.live = false
		m.cancelDial = nil
		ended := m.session
		callbacks := m.callbacks
		m.mu.Unlock()

		m.log.Warn("Handshake failed", "session_id", session.ID, "error", err)
		m.reportError(err)
		if callbacks.OnDisconnected != nil {
			callbacks.OnDisconnected(ended, err)
		}
		return
	}

	m.session.State = domain.Connected
	m.session.ConnectionID = conn.ID()
	m.conn = conn
	m.cancelDial = nil
	m.membership.attach(conn)
	m.bus.attach(conn, session.Identity)

	sup := workers.NewSupervisor(m.log)
	sup.Add(workers.NewInboundWorker(m.log, session.ID, conn.Frames(), m.route, m.transportClosed))
	m.supervisor = sup
	connected := m.session
	callbacks := m.callbacks
	m.mu.Unlock()

	go sup.Run(context.Background())

	m.log.Info("Connected", "session_id", connected.ID, "connection_id", connected.ConnectionID)
	m.activity.Append(fmt.Sprintf("Connected with ID: %s", connected.ConnectionID))
	if callbacks.OnConnected != nil {
		callbacks.OnConnected(connected)
	}
}

// Disconnect tears the live session down. Without a live session it is a no-op.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	if !m.live {
		m.mu.Unlock()
		return
	}
	t := m.detachLocked(nil)
	m.mu.Unlock()
	m.finish(t)
}

func (m *ConnectionManager) disconnectSession(sessionID string) error {
	m.mu.Lock()
	if m.session.ID != sessionID {
		m.mu.Unlock()
		return m.stale(sessionID)
	}
	if !m.live {
		m.mu.Unlock()
		return nil
	}
	t := m.detachLocked(nil)
	m.mu.Unlock()
	m.finish(t)
	return nil
}

// route hands an inbound frame to the component owning it.
// Frames of a replaced session are dropped.
func (m *ConnectionManager) route(sessionID string, frame domain.Frame) {
	m.mu.Lock()
	current := m.isCurrentLocked(sessionID) && m.session.State == domain.Connected
	m.mu.Unlock()
	if !current {
		m.log.Debug("Dropping frame of a replaced session", "session_id", sessionID, "channel", frame.Channel)
		return
	}

	switch frame.Kind {
	case domain.AckFrame:
		ack := domain.ParseAck(frame.Payload)
		if m.membership.Acknowledge(frame.AckID, ack) || m.bus.Acknowledge(frame.AckID, ack) {
			return
		}
		m.log.Debug("Acknowledgement without request", "ack_id", frame.AckID)
	default:
		m.bus.DispatchFrame(frame)
	}
}

// transportClosed is called by the inbound worker when the connection ends.
// It only matters if the session is still live, i.e. not closed by us.
func (m *ConnectionManager) transportClosed(sessionID string) {
	m.mu.Lock()
	if !m.isCurrentLocked(sessionID) {
		m.mu.Unlock()
		return
	}
	cause := errors.ErrNetworkError
	if m.conn != nil && m.conn.Err() != nil {
		cause = fmt.Errorf("%w: %v", errors.ErrNetworkError, m.conn.Err())
	}
	t := m.detachLocked(cause)
	m.mu.Unlock()

	m.log.Warn("Connection lost", "session_id", sessionID, "error", cause)
	m.finish(t)
}

// detachLocked moves the session to Disconnected and collects what must be
// released. Pending acknowledgements are cancelled before rooms are reset.
func (m *ConnectionManager) detachLocked(cause error) teardown {
	m.session.State = domain.Disconnected
	m.live = false
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	t := teardown{
		session:   m.session,
		conn:      m.conn,
		sup:       m.supervisor,
		cancelled: m.membership.reset(),
		cause:     cause,
	}
	m.bus.detach()
	m.conn = nil
	m.supervisor = nil
	return t
}

func (m *ConnectionManager) finish(t teardown) {
	if t.sup != nil {
		t.sup.Stop()
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			m.log.Debug("Closing connection", "session_id", t.session.ID, "error", err)
		}
	}
	if len(t.cancelled) > 0 {
		m.log.Debug("Pending requests cancelled", "session_id", t.session.ID, "count", len(t.cancelled))
	}
	if t.cause != nil {
		m.reportError(t.cause)
	}
	m.activity.Append("Disconnected")
	m.log.Info("Disconnected", "session_id", t.session.ID)

	m.mu.Lock()
	callbacks := m.callbacks
	m.mu.Unlock()
	if callbacks.OnDisconnected != nil {
		callbacks.OnDisconnected(t.session, t.cause)
	}
}

// Session returns a copy of the current session.
func (m *ConnectionManager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *ConnectionManager) State() domain.ConnectionState {
	return m.Session().State
}

func (m *ConnectionManager) Membership() *RoomMembership { return m.membership }

func (m *ConnectionManager) Bus() *MessageBus { return m.bus }

func (m *ConnectionManager) isCurrentLocked(sessionID string) bool {
	return m.live && m.session.ID == sessionID
}

// checkCurrent fails only for a replaced session; a closed but not replaced
// one is left to the components, which answer ErrNotConnected.
func (m *ConnectionManager) checkCurrent(sessionID string) error {
	m.mu.Lock()
	current := m.session.ID == sessionID
	m.mu.Unlock()
	if !current {
		return m.stale(sessionID)
	}
	return nil
}

func (m *ConnectionManager) stale(sessionID string) error {
	err := fmt.Errorf("%w: session %s", errors.ErrStaleSession, sessionID)
	m.activity.Append(fmt.Sprintf("Error: %v", err))
	return err
}

func (m *ConnectionManager) reportError(err error) {
	m.activity.Append(fmt.Sprintf("Error: %v", err))
	m.mu.Lock()
	onError := m.callbacks.OnError
	m.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func isTaxonomy(err error) bool {
	return stderrors.Is(err, errors.ErrNetworkError) || stderrors.Is(err, errors.ErrAuthFailed)
}

// Handle is bound to the session created by one Connect call.
// Once another Connect replaces that session, every call fails with
// ErrStaleSession. A closed but not replaced session answers ErrNotConnected.
type Handle struct {
	manager   *ConnectionManager
	sessionID string
}

func (h *Handle) SessionID() string { return h.sessionID }

// Session returns the session snapshot, or ErrStaleSession once replaced.
func (h *Handle) Session() (domain.Session, error) {
	h.manager.mu.Lock()
	defer h.manager.mu.Unlock()
	if h.manager.session.ID != h.sessionID {
		return domain.Session{}, fmt.Errorf("%w: session %s", errors.ErrStaleSession, h.sessionID)
	}
	return h.manager.session, nil
}

func (h *Handle) Join(room, ref string) (*domain.Request, error) {
	if err := h.manager.checkCurrent(h.sessionID); err != nil {
		return nil, err
	}
	return h.manager.membership.Join(room, ref)
}

func (h *Handle) Leave(room, ref string) (*domain.Request, error) {
	if err := h.manager.checkCurrent(h.sessionID); err != nil {
		return nil, err
	}
	return h.manager.membership.Leave(room, ref)
}

func (h *Handle) Send(msg domain.Message) (string, error) {
	if err := h.manager.checkCurrent(h.sessionID); err != nil {
		return "", err
	}
	return h.manager.bus.Send(msg)
}

func (h *Handle) Disconnect() error {
	return h.manager.disconnectSession(h.sessionID)
}
