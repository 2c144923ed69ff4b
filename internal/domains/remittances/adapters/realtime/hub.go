package realtime

import (
	"sync"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	"github.com/remesas/remittance-api/internal/platform/metrics"
)

// DefaultBuffer is the per-subscriber queue length before events are dropped.
const DefaultBuffer = 64

var _ ports.Notifier = (*Hub)(nil)

// Hub is an in-process fan-out of order events. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	buffer  int
	metrics *metrics.Realtime
}

// HubOption customises the hub.
type HubOption func(*Hub)

func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithMetrics(m *metrics.Realtime) HubOption {
	return func(h *Hub) { h.metrics = m }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{subs: map[uint64]*subscription{}, buffer: DefaultBuffer}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Hub) Publish(event domain.Event) {
	kind := string(event.Kind)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.metrics != nil {
		h.metrics.Published.WithLabelValues(kind).Inc()
	}
	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
			if h.metrics != nil {
				h.metrics.Delivered.WithLabelValues(kind).Inc()
			}
		default:
			if h.metrics != nil {
				h.metrics.Dropped.WithLabelValues(kind).Inc()
			}
		}
	}
}

func (h *Hub) Subscribe(filter domain.Filter) ports.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &subscription{id: h.nextID, filter: filter, ch: make(chan domain.Event, h.buffer), hub: h}
	h.subs[sub.id] = sub
	if h.metrics != nil {
		h.metrics.Subscribers.Inc()
	}
	return sub
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	if h.metrics != nil {
		h.metrics.Subscribers.Dec()
	}
}

type subscription struct {
	id     uint64
	filter domain.Filter
	ch     chan domain.Event
	hub    *Hub
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.Event { return s.ch }

func (s *subscription) Close() {
	s.once.Do(func() { s.hub.remove(s.id) })
}
