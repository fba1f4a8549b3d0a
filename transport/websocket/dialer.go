// Package websocket is the real-time transport of the chat client.
// It dials the server, runs the connect handshake and exchanges JSON frames
// of the form {"channel": ..., "ack": ..., "payload": ...}.
package websocket

import (
	"chat-client/contract"
	"chat-client/domain"
	"chat-client/errors"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeWait = 10 * time.Second

var ErrSendQueueFull = fmt.Errorf("send queue full")

// Dialer connects to one server URL, e.g. ws://localhost:3100/chat.
type Dialer struct {
	url    string
	log    *slog.Logger
	dialer *websocket.Dialer
}

func NewDialer(log *slog.Logger, url string) *Dialer {
	return &Dialer{
		url: url,
		log: log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeWait,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

var _ contract.Dialer = (*Dialer)(nil)

// Dial opens the socket and authenticates with creds. The server answers the
// connect frame with either connected {id} or connect_error {message}.
func (d *Dialer) Dial(ctx context.Context, creds domain.Credentials) (contract.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)

	ws, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", errors.ErrAuthFailed, resp.Status)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", errors.ErrNetworkError, d.url, err)
	}

	id, err := d.authenticate(ctx, ws, creds)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	conn := newConn(id, ws, d.log)
	conn.start()
	d.log.Debug("connected to server", "url", d.url, "connection_id", id)
	return conn, nil
}

func (d *Dialer) authenticate(ctx context.Context, ws *websocket.Conn, creds domain.Credentials) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultHandshakeWait)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = ws.SetReadDeadline(time.Now())
	})
	defer stop()

	data, err := encode(channelConnect, creds, "")
	if err != nil {
		return "", err
	}
	_ = ws.SetWriteDeadline(deadline)
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return "", fmt.Errorf("%w: send connect: %v", errors.ErrNetworkError, err)
	}

	_ = ws.SetReadDeadline(deadline)
	_, data, err = ws.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("%w: read handshake: %v", errors.ErrNetworkError, err)
	}
	_ = ws.SetReadDeadline(time.Time{})
	_ = ws.SetWriteDeadline(time.Time{})

	reply, err := decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: handshake reply: %v", errors.ErrNetworkError, err)
	}

	switch reply.Channel {
	case channelConnected:
		var p connectedPayload
		if err := decodePayload(reply, &p); err != nil {
			return "", err
		}
		return p.ID, nil
	case channelConnectError:
		var p connectErrorPayload
		_ = decodePayload(reply, &p)
		return "", fmt.Errorf("%w: %s", errors.ErrAuthFailed, p.Message)
	default:
		return "", fmt.Errorf("%w: unexpected handshake frame %q", errors.ErrNetworkError, reply.Channel)
	}
}
