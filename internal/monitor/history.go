package monitor

import "github.com/edgegate/edgegate/internal/models"

// history is a fixed-capacity ring buffer of attack events. When full, the
// oldest event is overwritten. Not safe for concurrent use on its own; the
// Monitor serializes access.
type history struct {
	events []models.AttackEvent
	next   int
	full   bool
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{events: make([]models.AttackEvent, capacity)}
}

func (h *history) add(e models.AttackEvent) {
	h.events[h.next] = e
	h.next = (h.next + 1) % len(h.events)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) len() int {
	if h.full {
		return len(h.events)
	}
	return h.next
}

// snapshot returns the retained events in insertion order, oldest first.
func (h *history) snapshot() []models.AttackEvent {
	if !h.full {
		out := make([]models.AttackEvent, h.next)
		copy(out, h.events[:h.next])
		return out
	}
	out := make([]models.AttackEvent, 0, len(h.events))
	out = append(out, h.events[h.next:]...)
	out = append(out, h.events[:h.next]...)
	return out
}
