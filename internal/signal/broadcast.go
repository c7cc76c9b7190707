// Package signal carries the in-process "approval data changed"
// broadcast the admin console fires so other open views re-check
// their state. Fire and forget: no payload, no ordering, and a
// subscriber that is not draining its channel simply misses the tick.
package signal

import "sync"

type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan struct{})}
}

// Subscribe returns a channel that receives at most one pending tick
// and a cancel func that must be called on teardown.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Broadcaster) Broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
