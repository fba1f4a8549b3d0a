package runtime

import (
	"chat-client/auth"
	"chat-client/contract"
	"chat-client/domain"
	"chat-client/domain/event"
	"chat-client/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeliveryFunc receives the server acknowledgement of a sent message.
type DeliveryFunc func(msg domain.Message, ack domain.Ack)

// MessageBus validates outbound messages and routes inbound events to the
// handlers registered for their channel.
//
// Sending is fire-and-forget for the activity log: "Sent: <body>" is recorded
// as soon as the transport accepts the message. Delivery acknowledgements are
// reported out-of-band through the DeliveryFunc.
type MessageBus struct {
	mu          sync.RWMutex
	log         *slog.Logger
	activity    contract.LogSink
	ackTimeout  time.Duration
	handlers    map[domain.Channel][]contract.EventHandler
	conn        contract.Conn
	identity    string
	joined      func(room string) bool
	deliveries  map[string]domain.Message
	onDelivered DeliveryFunc
}

func NewMessageBus(log *slog.Logger, activity contract.LogSink, ackTimeout time.Duration) *MessageBus {
	return &MessageBus{
		log:        log,
		activity:   activity,
		ackTimeout: ackTimeout,
		handlers:   make(map[domain.Channel][]contract.EventHandler),
		joined:     func(string) bool { return false },
		deliveries: make(map[string]domain.Message),
	}
}

// Guard sets the predicate deciding whether a room accepts messages.
func (b *MessageBus) Guard(joined func(room string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joined = joined
}

func (b *MessageBus) OnDelivered(fn DeliveryFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDelivered = fn
}

// RegisterHandler appends handler to the chain of channel.
func (b *MessageBus) RegisterHandler(channel domain.Channel, handler contract.EventHandler) error {
	if !channel.Valid() {
		return fmt.Errorf("%w: %q", errors.ErrUnknownChannel, channel)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = append(b.handlers[channel], handler)
	return nil
}

// Send hands msg to the transport on group_message and returns the ack id.
// The sender defaults to the session identity.
func (b *MessageBus) Send(msg domain.Message) (string, error) {
	b.mu.RLock()
	conn, identity, joined := b.conn, b.identity, b.joined
	b.mu.RUnlock()

	// No room is Joined without a connection, so RoomNotJoined comes first.
	if !joined(msg.Room) {
		return "", b.fail(fmt.Errorf("%w: %q", errors.ErrRoomNotJoined, msg.Room))
	}
	if conn == nil {
		return "", b.fail(errors.ErrNotConnected)
	}
	if err := auth.ValidateMessage(msg); err != nil {
		return "", b.fail(err)
	}
	if msg.Sender == "" {
		msg.Sender = identity
	}

	ackID := uuid.NewString()
	b.trackDelivery(ackID, msg)
	if err := conn.Emit(domain.ChannelGroupMessage, msg, ackID); err != nil {
		b.untrackDelivery(ackID)
		return "", b.fail(fmt.Errorf("%w: %v", errors.ErrNetworkError, err))
	}
	b.activity.Append(fmt.Sprintf("Sent: %s", msg.Body))
	return ackID, nil
}

func (b *MessageBus) trackDelivery(ackID string, msg domain.Message) {
	b.mu.Lock()
	b.deliveries[ackID] = msg
	b.mu.Unlock()
	time.AfterFunc(b.ackTimeout, func() {
		if b.untrackDelivery(ackID) {
			b.log.Debug("No delivery acknowledgement", "ack_id", ackID, "room", msg.Room)
		}
	})
}

func (b *MessageBus) untrackDelivery(ackID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.deliveries[ackID]
	delete(b.deliveries, ackID)
	return ok
}

// Acknowledge reports a delivery acknowledgement. It never touches the log.
func (b *MessageBus) Acknowledge(ackID string, ack domain.Ack) bool {
	b.mu.Lock()
	msg, ok := b.deliveries[ackID]
	delete(b.deliveries, ackID)
	onDelivered := b.onDelivered
	b.mu.Unlock()
	if !ok {
		return false
	}
	b.log.Debug("Message delivered", "ack_id", ackID, "room", msg.Room, "ok", ack.Succeeded())
	if onDelivered != nil {
		onDelivered(msg, ack)
	}
	return true
}

// DispatchFrame decodes an inbound event frame and dispatches it.
func (b *MessageBus) DispatchFrame(frame domain.Frame) {
	evt, err := event.Decode(frame.Channel, frame.Payload)
	if err != nil {
		b.fail(fmt.Errorf("%s: %w", frame.Channel, err))
		return
	}
	b.Dispatch(evt)
}

// Dispatch records the event in the activity log when it is user-visible,
// then runs every handler of its channel in registration order.
func (b *MessageBus) Dispatch(evt event.Inbound) {
	switch e := evt.(type) {
	case event.MessageReceived:
		b.activity.Append(fmt.Sprintf("%s: %s", e.From(), e.Message))
	case event.ServerError:
		b.activity.Append(fmt.Sprintf("Error: %s", e.Error()))
	}

	b.mu.RLock()
	handlers := b.handlers[evt.Channel()]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.invoke(h, evt); err != nil {
			b.fail(err)
		}
	}
}

// invoke isolates a handler: errors and panics become ErrHandlerError.
func (b *MessageBus) invoke(h contract.EventHandler, evt event.Inbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w on %s: panic: %v", errors.ErrHandlerError, evt.Channel(), r)
		}
	}()
	if herr := h.Handle(evt); herr != nil {
		return fmt.Errorf("%w on %s: %v", errors.ErrHandlerError, evt.Channel(), herr)
	}
	return nil
}

func (b *MessageBus) attach(conn contract.Conn, identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
	b.identity = identity
}

func (b *MessageBus) detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = nil
	b.identity = ""
	b.deliveries = make(map[string]domain.Message)
}

func (b *MessageBus) fail(err error) error {
	b.log.Warn("Message bus error", "error", err)
	b.activity.Append(fmt.Sprintf("Error: %v", err))
	return err
}
