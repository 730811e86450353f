package service

import (
	"sync"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// subscriberBuffer bounds pending events per subscriber. Any single event
// triggers a full rebuild, so dropping extras loses nothing.
const subscriberBuffer = 4

// Hub fans change events out to the live subscribers of each account.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.ChangeEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan domain.ChangeEvent]struct{})}
}

// Subscribe registers a listener for accountID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(accountID string) (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[accountID]
	if !ok {
		set = make(map[chan domain.ChangeEvent]struct{})
		h.subs[accountID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[accountID], ch)
			if len(h.subs[accountID]) == 0 {
				delete(h.subs, accountID)
			}
			close(ch)
		})
	}
}

// Publish delivers evt to every subscriber of its account without blocking.
func (h *Hub) Publish(evt domain.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[evt.AccountID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of listeners for accountID.
func (h *Hub) Subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}
