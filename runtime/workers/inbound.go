package workers

import (
	"chat-client/domain"
	"context"
	"log/slog"
)

// InboundWorker reads the frames of one session connection in arrival order
// and hands each of them to Route. When the connection ends it calls Closed once.
//
// A panic in Route crashes the worker; the supervisor restarts it on the
// same channel, so the following frames are still delivered in order.
type InboundWorker struct {
	log       *slog.Logger
	sessionID string
	frames    <-chan domain.Frame
	route     func(sessionID string, frame domain.Frame)
	closed    func(sessionID string)
}

func NewInboundWorker(log *slog.Logger, sessionID string, frames <-chan domain.Frame,
	route func(string, domain.Frame), closed func(string)) *InboundWorker {
	return &InboundWorker{
		log:       log,
		sessionID: sessionID,
		frames:    frames,
		route:     route,
		closed:    closed,
	}
}

func (w *InboundWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping inbound worker", "session_id", w.sessionID)
			return nil
		case frame, ok := <-w.frames:
			if !ok {
				w.log.Debug("Connection frames closed", "session_id", w.sessionID)
				w.closed(w.sessionID)
				return nil
			}
			w.route(w.sessionID, frame)
		}
	}
}
