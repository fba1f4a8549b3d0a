package runtime

import (
	"chat-client/domain"
	"chat-client/domain/event"
	"chat-client/errors"
	"chat-client/mocks"
	"chat-client/projection"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestBus(joinedRooms ...string) (*MessageBus, *projection.ActivityLog, *fakeConn) {
	activity := projection.NewActivityLog()
	bus := NewMessageBus(testLogger(), activity, testAckTimeout)
	bus.Guard(func(room string) bool {
		for _, r := range joinedRooms {
			if r == room {
				return true
			}
		}
		return false
	})
	conn := newFakeConn("conn-1")
	bus.attach(conn, "test@tester.com")
	return bus, activity, conn
}

func TestMessageBus_Send_WithoutConnection_RoomNotJoined(t *testing.T) {
	req := require.New(t)
	activity := projection.NewActivityLog()
	bus := NewMessageBus(testLogger(), activity, testAckTimeout)

	_, err := bus.Send(domain.Message{Title: "t", Body: "hi", Room: "chat"})

	req.True(stderrors.Is(err, errors.ErrRoomNotJoined))
	requireLogLacks(t, activity, "Sent:")
}

func TestMessageBus_Send_NotConnected(t *testing.T) {
	req := require.New(t)
	activity := projection.NewActivityLog()
	bus := NewMessageBus(testLogger(), activity, testAckTimeout)
	bus.Guard(func(string) bool { return true })

	_, err := bus.Send(domain.Message{Body: "hi", Room: "chat"})

	req.True(stderrors.Is(err, errors.ErrNotConnected))
	requireLogLacks(t, activity, "Sent:")
}

func TestMessageBus_Send_EmitsOnGroupMessage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConn(ctrl)
	activity := mocks.NewMockLogSink(ctrl)
	bus := NewMessageBus(testLogger(), activity, testAckTimeout)
	bus.Guard(func(room string) bool { return room == "chat" })
	bus.attach(conn, "test@tester.com")

	expected := domain.Message{Title: domain.DefaultTitle, Body: "hi", Room: "chat", Sender: "test@tester.com"}

	// Given a transport accepting the message
	var emittedID string
	gomock.InOrder(
		conn.EXPECT().Emit(domain.ChannelGroupMessage, expected, gomock.Any()).
			DoAndReturn(func(_ domain.Channel, _ any, ackID string) error {
				emittedID = ackID
				return nil
			}),
		activity.EXPECT().Append("Sent: hi").Return(domain.LogEntry{Text: "Sent: hi"}),
	)

	// When the message is sent
	ackID, err := bus.Send(domain.Message{Title: domain.DefaultTitle, Body: "hi", Room: "chat"})

	// Then it went out once with the returned ack id, and was logged after
	req.NoError(err)
	req.Equal(emittedID, ackID)
}

func TestMessageBus_Send_RoomNotJoined(t *testing.T) {
	req := require.New(t)
	bus, activity, conn := newTestBus()

	_, err := bus.Send(domain.Message{Body: "hi", Room: "chat"})

	req.True(stderrors.Is(err, errors.ErrRoomNotJoined))
	req.Empty(conn.sent(domain.ChannelGroupMessage))
	requireLogLacks(t, activity, "Sent:")
	requireLogContains(t, activity, "room not joined")
}

func TestMessageBus_Send_InvalidMessage(t *testing.T) {
	req := require.New(t)
	bus, _, conn := newTestBus("chat")

	_, err := bus.Send(domain.Message{Room: "chat"})

	req.True(stderrors.Is(err, errors.ErrInvalidMessage))
	req.Empty(conn.sent(domain.ChannelGroupMessage))
}

func TestMessageBus_Send_DeliversAndReportsAck(t *testing.T) {
	req := require.New(t)
	bus, activity, conn := newTestBus("chat")
	delivered := make(chan domain.Ack, 1)
	bus.OnDelivered(func(msg domain.Message, ack domain.Ack) {
		req.Equal("hi", msg.Body)
		delivered <- ack
	})

	// Given a message without a sender
	ackID, err := bus.Send(domain.Message{Title: domain.DefaultTitle, Body: "hi", Room: "chat"})
	req.NoError(err)

	// Then it is emitted on group_message with the session identity
	sent := conn.sent(domain.ChannelGroupMessage)
	req.Len(sent, 1)
	req.Equal(ackID, sent[0].ackID)
	msg, ok := sent[0].payload.(domain.Message)
	req.True(ok)
	req.Equal("test@tester.com", msg.Sender)
	req.Equal([]string{"Sent: hi"}, texts(activity))

	// When the server acknowledges it, the delivery callback fires and the log is untouched
	req.True(bus.Acknowledge(ackID, domain.ParseAck([]byte(`{"ok":true}`))))
	select {
	case ack := <-delivered:
		req.True(ack.Succeeded())
	case <-time.After(time.Second):
		req.Fail("delivery callback not called")
	}
	req.Equal([]string{"Sent: hi"}, texts(activity))
	req.False(bus.Acknowledge(ackID, domain.Ack{}))
}

func TestMessageBus_RegisterHandler_UnknownChannel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	bus, _, _ := newTestBus()

	err := bus.RegisterHandler("presence", mocks.NewMockEventHandler(ctrl))

	req.True(stderrors.Is(err, errors.ErrUnknownChannel))
}

func TestMessageBus_DispatchFrame_LogsMessages(t *testing.T) {
	req := require.New(t)
	bus, activity, _ := newTestBus()

	bus.DispatchFrame(eventFrame(domain.ChannelMessages, `{"sender":"bob","message":"hello"}`))
	bus.DispatchFrame(eventFrame(domain.ChannelMessages, `{"message":"welcome"}`))
	bus.DispatchFrame(eventFrame(domain.ChannelError, `{"code":42}`))

	req.Equal([]string{"bob: hello", "Server: welcome", `Error: {"code":42}`}, texts(activity))
}

func TestMessageBus_DispatchFrame_InvalidPayload(t *testing.T) {
	req := require.New(t)
	bus, activity, _ := newTestBus()

	bus.DispatchFrame(eventFrame(domain.ChannelMessages, `"not an object"`))

	entries := texts(activity)
	req.Len(entries, 1)
	req.Contains(entries[0], "invalid payload")
}

func TestMessageBus_Dispatch_HandlersRunInOrderAndAreIsolated(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	bus, activity, _ := newTestBus()

	first := mocks.NewMockEventHandler(ctrl)
	failing := mocks.NewMockEventHandler(ctrl)
	panicking := mocks.NewMockEventHandler(ctrl)
	last := mocks.NewMockEventHandler(ctrl)
	for _, h := range []*mocks.MockEventHandler{first, failing, panicking, last} {
		req.NoError(bus.RegisterHandler(domain.ChannelGroupMessage, h))
	}

	evt := event.GroupMessage{Message: domain.Message{Body: "hey", Room: "chat", Sender: "bob"}}

	// Given handlers registered in order, one failing and one panicking
	gomock.InOrder(
		first.EXPECT().Handle(evt).Return(nil),
		failing.EXPECT().Handle(evt).Return(stderrors.New("boom")),
		panicking.EXPECT().Handle(evt).Do(func(event.Inbound) { panic("kaboom") }),
		last.EXPECT().Handle(evt).Return(nil),
	)

	// When the event is dispatched
	bus.Dispatch(evt)

	// Then every handler ran and both failures were reported as handler errors
	entries := texts(activity)
	req.Len(entries, 2)
	req.Contains(entries[0], errors.ErrHandlerError.Error())
	req.Contains(entries[0], "boom")
	req.Contains(entries[1], "kaboom")
}
