package realtime

import (
	"context"
	"sync"
)

// subscriber buffer; a page that lags this far behind just misses events and
// catches up on its next refresh anyway.
const subscriberBuffer = 8

// MemoryHub is an in-process Hub used when Redis is unavailable or disabled.
// Events reach only subscribers in the same process.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: map[string]map[chan Event]struct{}{}}
}

// Publish delivers ev to every current subscriber of the scope. Full
// subscriber buffers are skipped, never waited on.
func (h *MemoryHub) Publish(_ context.Context, scope Scope, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[scope.Channel()] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a new consumer on the scope.
func (h *MemoryHub) Subscribe(_ context.Context, scope Scope) (*Subscription, error) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[scope.Channel()]
	if !ok {
		set = map[chan Event]struct{}{}
		h.subs[scope.Channel()] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return &Subscription{
		C: ch,
		close: func() {
			h.mu.Lock()
			if set, ok := h.subs[scope.Channel()]; ok {
				if _, still := set[ch]; still {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, scope.Channel())
				}
			}
			h.mu.Unlock()
		},
	}, nil
}
