package services

import (
	"chat-client/contract"
	"chat-client/domain"
	"chat-client/projection"
	"chat-client/runtime"
	"log/slog"
	"sync"
	"time"
)

// ClearedText is appended right after the log is cleared.
const ClearedText = "Messages cleared"

type IChatService interface {
	Connect(token, identity string) error
	Disconnect()
	Join(room string) (*domain.Request, error)
	Leave(room string) (*domain.Request, error)
	Send(room, body string) (string, error)
	ClearLog()
	Log() []domain.LogEntry
	Rooms() []domain.Room
	Session() domain.Session
}

type Config struct {
	DefaultRoom      string
	HandshakeTimeout time.Duration
	AckTimeout       time.Duration
}

// ChatService is what the console talks to. It keeps the handle of the
// latest session and fills in the defaults a user does not type.
type ChatService struct {
	mu          sync.Mutex
	log         *slog.Logger
	activity    *projection.ActivityLog
	manager     *runtime.ConnectionManager
	handle      *runtime.Handle
	defaultRoom string
}

func NewChatService(log *slog.Logger, dialer contract.Dialer, cfg Config) *ChatService {
	activity := projection.NewActivityLog()
	membership := runtime.NewRoomMembership(log, activity, cfg.AckTimeout)
	bus := runtime.NewMessageBus(log, activity, cfg.AckTimeout)
	return &ChatService{
		log:         log,
		activity:    activity,
		manager:     runtime.NewConnectionManager(log, dialer, activity, membership, bus, cfg.HandshakeTimeout),
		defaultRoom: cfg.DefaultRoom,
	}
}

// Connect starts a new session, replacing the current one if any.
// The outcome of the handshake shows up in the log and the callbacks.
func (s *ChatService) Connect(token, identity string) error {
	h, err := s.manager.Connect(token, identity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	s.log.Debug("Session handle replaced", "session_id", h.SessionID())
	return nil
}

func (s *ChatService) Disconnect() {
	s.manager.Disconnect()
}

// Join joins room, or the default room when room is empty.
func (s *ChatService) Join(room string) (*domain.Request, error) {
	room = s.roomOrDefault(room)
	if h := s.current(); h != nil {
		return h.Join(room, "")
	}
	return s.manager.Membership().Join(room, "")
}

func (s *ChatService) Leave(room string) (*domain.Request, error) {
	room = s.roomOrDefault(room)
	if h := s.current(); h != nil {
		return h.Leave(room, "")
	}
	return s.manager.Membership().Leave(room, "")
}

// Send posts body to room with the title used for hand-typed messages.
func (s *ChatService) Send(room, body string) (string, error) {
	return s.SendMessage(domain.Message{
		Title: domain.DefaultTitle,
		Body:  body,
		Room:  s.roomOrDefault(room),
	})
}

func (s *ChatService) SendMessage(msg domain.Message) (string, error) {
	if h := s.current(); h != nil {
		return h.Send(msg)
	}
	return s.manager.Bus().Send(msg)
}

func (s *ChatService) ClearLog() {
	s.activity.Clear()
	s.activity.Append(ClearedText)
}

func (s *ChatService) Log() []domain.LogEntry {
	return s.activity.Snapshot()
}

// Subscribe registers fn for every entry appended from now on.
// fn runs on the appending goroutine, sometimes under the session locks,
// so it must not call back into the service.
func (s *ChatService) Subscribe(fn func(domain.LogEntry)) {
	s.activity.Subscribe(fn)
}

func (s *ChatService) Rooms() []domain.Room {
	return s.manager.Membership().Rooms()
}

func (s *ChatService) Session() domain.Session {
	return s.manager.Session()
}

func (s *ChatService) DefaultRoom() string {
	return s.defaultRoom
}

func (s *ChatService) RegisterHandler(channel domain.Channel, handler contract.EventHandler) error {
	return s.manager.Bus().RegisterHandler(channel, handler)
}

func (s *ChatService) OnDelivered(fn runtime.DeliveryFunc) {
	s.manager.Bus().OnDelivered(fn)
}

func (s *ChatService) SetCallbacks(callbacks runtime.Callbacks) {
	s.manager.SetCallbacks(callbacks)
}

func (s *ChatService) current() *runtime.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *ChatService) roomOrDefault(room string) string {
	if room == "" {
		return s.defaultRoom
	}
	return room
}
