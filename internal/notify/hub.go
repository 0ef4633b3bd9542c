// Package notify fans change events out to subscribers, fed either by polling the
// sqlite change log or by Redis Pub/Sub.
package notify

import (
	"context"
	"strings"
	"sync"

	"getitdone/internal/model"
)

// Publisher pushes a change event to other processes.
type Publisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// Hub is an in-process fan-out keyed by collection.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*HubSubscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*HubSubscription]struct{}{}}
}

// HubSubscription receives events for one collection until closed.
type HubSubscription struct {
	hub        *Hub
	collection string
	ch         chan model.ChangeEvent
	closeOnce  sync.Once
}

func (s *HubSubscription) Events() <-chan model.ChangeEvent { return s.ch }

func (s *HubSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		if set := s.hub.subs[s.collection]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.collection)
			}
		}
		close(s.ch)
		s.hub.mu.Unlock()
	})
	return nil
}

func (h *Hub) Subscribe(collection string) *HubSubscription {
	collection = strings.TrimSpace(collection)
	sub := &HubSubscription{hub: h, collection: collection, ch: make(chan model.ChangeEvent, 8)}
	h.mu.Lock()
	set := h.subs[collection]
	if set == nil {
		set = map[*HubSubscription]struct{}{}
		h.subs[collection] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Broadcast delivers ev to every subscriber of its collection. A subscriber whose
// buffer is full misses the event; it still has undelivered events queued.
func (h *Hub) Broadcast(ev model.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ev.Collection] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions for collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[strings.TrimSpace(collection)])
}
