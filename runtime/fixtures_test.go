package runtime

import (
	"chat-client/domain"
	"chat-client/projection"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const testAckTimeout = 2 * time.Second

type emitted struct {
	channel domain.Channel
	payload any
	ackID   string
}

// fakeConn records emitted frames and lets the test push inbound ones.
type fakeConn struct {
	id      string
	mu      sync.Mutex
	emits   []emitted
	emitErr error
	err     error
	frames  chan domain.Frame
	once    sync.Once
	closed  bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, frames: make(chan domain.Frame, 16)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(channel domain.Channel, payload any, ackID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emitErr != nil {
		return c.emitErr
	}
	c.emits = append(c.emits, emitted{channel: channel, payload: payload, ackID: ackID})
	return nil
}

func (c *fakeConn) Frames() <-chan domain.Frame { return c.frames }

func (c *fakeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.frames)
	})
	return nil
}

// drop simulates a transport failure.
func (c *fakeConn) drop(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.frames) })
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) sent(channel domain.Channel) []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.emits, func(e emitted, _ int) bool { return e.channel == channel })
}

func (c *fakeConn) push(frame domain.Frame) {
	c.frames <- frame
}

func ackFrame(ackID string, payload string) domain.Frame {
	return domain.Frame{Kind: domain.AckFrame, AckID: ackID, Payload: json.RawMessage(payload)}
}

func eventFrame(channel domain.Channel, payload string) domain.Frame {
	return domain.Frame{Kind: domain.EventFrame, Channel: channel, Payload: json.RawMessage(payload)}
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func texts(log *projection.ActivityLog) []string {
	return lo.Map(log.Snapshot(), func(e domain.LogEntry, _ int) string { return e.Text })
}

func requireLogContains(t *testing.T, log *projection.ActivityLog, fragment string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return lo.ContainsBy(texts(log), func(s string) bool { return strings.Contains(s, fragment) })
	}, 2*time.Second, 5*time.Millisecond, "activity log has no entry containing %q: %v", fragment, texts(log))
}

func requireLogLacks(t *testing.T, log *projection.ActivityLog, fragment string) {
	t.Helper()
	require.False(t, lo.ContainsBy(texts(log), func(s string) bool { return strings.Contains(s, fragment) }),
		"activity log unexpectedly contains %q: %v", fragment, texts(log))
}
