package store

import (
	"sync"

	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

// subscriber serializes delivery against cancellation: cancel takes
// the same lock delivery holds, so once cancel returns no further
// callback invocation is possible.
type subscriber struct {
	mu     sync.Mutex
	closed bool
	fn     func(models.ApprovalRecord)
}

func (s *subscriber) deliver(rec models.ApprovalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fn(rec)
	}
}

// Hub is a per-email subscriber registry. Publish delivers the given
// record synchronously to every live subscriber for that email.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]*subscriber)}
}

// Subscribe registers fn for updates to email and returns a cancel
// func. It does not deliver current state; that is the gateway's job.
func (h *Hub) Subscribe(email string, fn func(models.ApprovalRecord)) func() {
	sub := &subscriber{fn: fn}

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[email] == nil {
		h.subs[email] = make(map[int]*subscriber)
	}
	h.subs[email][id] = sub
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		if m := h.subs[email]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs, email)
			}
		}
		h.mu.Unlock()

		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
	}
}

func (h *Hub) Publish(email string, rec models.ApprovalRecord) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[email]))
	for _, sub := range h.subs[email] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(rec)
	}
}
