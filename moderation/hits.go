package moderation

import (
	"chat-client/domain/event"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// HitCounter is an event handler counting censored words in inbound text.
type HitCounter struct {
	mu        sync.Mutex
	log       *slog.Logger
	moderator *Moderator
	counter   uint64
	hits      map[string]uint64
}

func NewHitCounter(moderator *Moderator, log *slog.Logger) *HitCounter {
	return &HitCounter{log: log, moderator: moderator, hits: make(map[string]uint64)}
}

func (h *HitCounter) Handle(evt event.Inbound) error {
	var text string
	switch e := evt.(type) {
	case event.MessageReceived:
		text = e.Message
	case event.GroupMessage:
		text = e.Body
	default:
		return nil
	}

	_, words := h.moderator.Censor(text)
	if len(words) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter++
	for _, w := range words {
		h.hits[w]++
	}
	h.log.Debug("Censored words received", "channel", evt.Channel(), "words", words)
	return nil
}

// Total is the number of inbound messages holding at least one censored word.
func (h *HitCounter) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}

// Hits returns a copy of the count per censored word.
func (h *HitCounter) Hits() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo.Assign(h.hits)
}
