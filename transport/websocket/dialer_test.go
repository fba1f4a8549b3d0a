package websocket

import (
	"chat-client/domain"
	"chat-client/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatServer accepts token "abc", acknowledges every request and echoes
// group messages back on "messages". A "drop" message closes the socket.
func chatServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer forbidden" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		hello, _ := decode(data)
		var creds domain.Credentials
		_ = json.Unmarshal(hello.Payload, &creds)
		if creds.Token != "abc" {
			reply, _ := encode(channelConnectError, connectErrorPayload{Message: "jwt malformed"}, "")
			_ = ws.WriteMessage(websocket.TextMessage, reply)
			return
		}
		reply, _ := encode(channelConnected, connectedPayload{ID: "conn-42"}, "")
		_ = ws.WriteMessage(websocket.TextMessage, reply)

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			f, _ := decode(data)
			ack, _ := encode(channelAck, map[string]bool{"ok": true}, f.Ack)
			_ = ws.WriteMessage(websocket.TextMessage, ack)

			if f.Channel == string(domain.ChannelGroupMessage) {
				var msg domain.Message
				_ = json.Unmarshal(f.Payload, &msg)
				if msg.Body == "drop" {
					return
				}
				echo, _ := encode(string(domain.ChannelMessages),
					map[string]string{"sender": msg.Sender, "message": msg.Body}, "")
				_ = ws.WriteMessage(websocket.TextMessage, echo)
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func nextFrame(t *testing.T, conn *Conn) domain.Frame {
	select {
	case f, ok := <-conn.Frames():
		require.True(t, ok, "frames closed")
		return f
	case <-time.After(2 * time.Second):
		require.Fail(t, "no frame received")
	}
	return domain.Frame{}
}

func TestDialer_Dial_HandshakeAndRoundTrip(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := chatServer(t)
	defer server.Close()

	// Given a successful handshake
	c, err := NewDialer(log, wsURL(server)).Dial(context.Background(),
		domain.Credentials{Token: "abc", Identity: "test@tester.com"})
	req.NoError(err)
	conn := c.(*Conn)
	defer conn.Close()
	req.Equal("conn-42", conn.ID())

	// When a join request is emitted
	req.NoError(conn.Emit(domain.ChannelJoinRoom, domain.RoomRequest{Room: "chat"}, "ref-1"))

	// Then its acknowledgement comes back with the same id
	ack := nextFrame(t, conn)
	req.Equal(domain.AckFrame, ack.Kind)
	req.Equal("ref-1", ack.AckID)
	req.True(domain.ParseAck(ack.Payload).Succeeded())

	// When a message is sent, it is acknowledged then echoed on "messages"
	req.NoError(conn.Emit(domain.ChannelGroupMessage,
		domain.Message{Title: "t", Body: "hi", Room: "chat", Sender: "bob"}, "ref-2"))
	req.Equal("ref-2", nextFrame(t, conn).AckID)
	echo := nextFrame(t, conn)
	req.Equal(domain.EventFrame, echo.Kind)
	req.Equal(domain.ChannelMessages, echo.Channel)
	req.JSONEq(`{"sender":"bob","message":"hi"}`, string(echo.Payload))
}

func TestDialer_Dial_Rejected(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := chatServer(t)
	defer server.Close()

	_, err := NewDialer(log, wsURL(server)).Dial(context.Background(), domain.Credentials{Token: "nope"})
	req.True(stderrors.Is(err, errors.ErrAuthFailed))
	req.Contains(err.Error(), "jwt malformed")

	_, err = NewDialer(log, wsURL(server)).Dial(context.Background(), domain.Credentials{Token: "forbidden"})
	req.True(stderrors.Is(err, errors.ErrAuthFailed))
}

func TestDialer_Dial_Unreachable(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := chatServer(t)
	url := wsURL(server)
	server.Close()

	_, err := NewDialer(log, url).Dial(context.Background(), domain.Credentials{Token: "abc"})
	req.True(stderrors.Is(err, errors.ErrNetworkError))
}

func TestConn_Close_EndsFramesWithoutError(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := chatServer(t)
	defer server.Close()

	c, err := NewDialer(log, wsURL(server)).Dial(context.Background(), domain.Credentials{Token: "abc"})
	req.NoError(err)

	// When the connection is closed locally
	req.NoError(c.Close())

	// Then frames are closed and no transport error is reported
	req.Eventually(func() bool {
		select {
		case _, ok := <-c.Frames():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	req.NoError(c.Err())
	req.Error(c.Emit(domain.ChannelGroupMessage, domain.Message{}, ""))
}

func TestConn_ServerDrop_ReportsError(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := chatServer(t)
	defer server.Close()

	c, err := NewDialer(log, wsURL(server)).Dial(context.Background(), domain.Credentials{Token: "abc"})
	req.NoError(err)
	defer c.Close()

	// When the server closes the socket
	req.NoError(c.Emit(domain.ChannelGroupMessage, domain.Message{Body: "drop", Room: "chat"}, "ref"))

	// Then the frames channel ends with a transport error
	for range c.Frames() {
	}
	req.Error(c.Err())
}
