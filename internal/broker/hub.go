package broker

import (
	"sync"

	"checkout-builder/internal/models"
	"checkout-builder/internal/util"
)

// Hub fans change events out to in-process subscribers by channel
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*Subscription
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*Subscription)}
}

// Subscription is the handle returned by Subscribe. The owner must call
// Unsubscribe when done; calling it more than once is harmless.
type Subscription struct {
	hub     *Hub
	id      uint64
	channel string
	fn      func(*models.ChangeEvent)
	once    sync.Once
}

// Subscribe registers fn for events on channel
func (h *Hub) Subscribe(channel string, fn func(*models.ChangeEvent)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{hub: h, id: h.nextID, channel: channel, fn: fn}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[uint64]*Subscription)
	}
	h.subs[channel][sub.id] = sub
	util.ChangeSubscriptions.Inc()

	return sub
}

// Channel returns the channel the subscription listens on
func (s *Subscription) Channel() string {
	return s.channel
}

// Unsubscribe stops delivery to the subscription
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, ok := h.subs[s.channel]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(h.subs, s.channel)
			}
		}
		util.ChangeSubscriptions.Dec()
	})
}

// Dispatch delivers event to every subscriber of its channel and returns how many were called
func (h *Hub) Dispatch(event *models.ChangeEvent) int {
	channel := event.Channel()

	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs[channel]))
	for _, s := range h.subs[channel] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.fn(event)
	}
	if len(targets) > 0 {
		util.ChangeEventsDispatchedTotal.WithLabelValues(event.Table).Add(float64(len(targets)))
	}
	return len(targets)
}

// Subscribers returns the number of subscribers on channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
