package websocket

import (
	"chat-client/domain"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
	frameBuffer    = 256
)

// Conn is an established, authenticated connection.
// Frames is closed when the read side ends; Err then holds the cause,
// or nil when Close was called locally.
type Conn struct {
	id     string
	log    *slog.Logger
	ws     *websocket.Conn
	send   chan []byte
	frames chan domain.Frame
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newConn(id string, ws *websocket.Conn, log *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		log:    log,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		frames: make(chan domain.Frame, frameBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Frames() <-chan domain.Frame { return c.frames }

func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Emit queues a frame for the write pump. It never blocks.
func (c *Conn) Emit(channel domain.Channel, payload any, ackID string) error {
	data, err := encode(channel.String(), payload, ackID)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Conn) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	if c.err == nil {
		c.err = err
	}
}

func (c *Conn) readPump() {
	defer func() {
		close(c.frames)
		_ = c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Error("read error", "connection_id", c.id, "error", err)
			}
			c.fail(err)
			return
		}

		wire, err := decode(data)
		if err != nil {
			c.log.Warn("invalid frame", "connection_id", c.id, "error", err)
			continue
		}
		frame, err := toDomain(wire)
		if err != nil {
			c.log.Warn("dropping frame", "connection_id", c.id, "error", err)
			continue
		}

		select {
		case c.frames <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.fail(err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
